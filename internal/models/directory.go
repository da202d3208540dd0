package models

import "time"

// StudentEnrollment places a student in a class and section for an academic session.
type StudentEnrollment struct {
	StudentID string    `json:"student_id" gorm:"primaryKey;size:255"`
	SessionID string    `json:"session_id" gorm:"primaryKey;size:100"`
	ClassID   string    `json:"class_id" gorm:"not null;size:100;index:idx_enrollment_class_section"`
	SectionID string    `json:"section_id" gorm:"not null;size:100;index:idx_enrollment_class_section"`
	CreatedAt time.Time `json:"created_at"`
}

func (StudentEnrollment) TableName() string {
	return "student_enrollments"
}

// TeacherAssignment grants a teacher visibility over one class/section.
type TeacherAssignment struct {
	TeacherID string    `json:"teacher_id" gorm:"primaryKey;size:255"`
	ClassID   string    `json:"class_id" gorm:"primaryKey;size:100"`
	SectionID string    `json:"section_id" gorm:"primaryKey;size:100"`
	CreatedAt time.Time `json:"created_at"`
}

func (TeacherAssignment) TableName() string {
	return "teacher_assignments"
}

// Covers reports whether the assignment includes the given class and, when set, section.
func (t *TeacherAssignment) Covers(classID, sectionID string) bool {
	if t.ClassID != classID {
		return false
	}
	return sectionID == "" || t.SectionID == sectionID
}
