package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// ExamQuestionsKey is the base key of an exam's question list. Entries live under
// one generation suffix per ExamQuestionsVersionKey value.
func ExamQuestionsKey(examID uint) string {
	return fmt.Sprintf("questions:%d", examID)
}

func ExamQuestionsVersionKey(examID uint) string {
	return fmt.Sprintf("questions-version:%d", examID)
}

func QuestionKey(questionID uint) string {
	return fmt.Sprintf("id:%d", questionID)
}

func UserKey(userID string) string {
	return fmt.Sprintf("id:%s", userID)
}

// InvalidateExamCache starts a new question list generation for one exam and drops
// everything cached under the old ones. Call it after the change is committed.
func InvalidateExamCache(ctx context.Context, cm *CacheManager, examID uint) {
	if err := cm.Exam.BumpVersion(ctx, ExamQuestionsVersionKey(examID)); err != nil {
		slog.ErrorContext(ctx, "Failed to bump exam cache version",
			"error", err,
			"exam_id", examID)
	}
	SafeInvalidatePattern(ctx, cm.Exam, ExamQuestionsKey(examID)+":*")
	SafeInvalidatePattern(ctx, cm.Exam, fmt.Sprintf("%d:*", examID))
}
