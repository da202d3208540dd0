package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/exam-engine/internal/config"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := rootCmd()

	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "migrate", "sweep"})
	assert.NotNil(t, root.RunE, "serve is the default command")
	assert.NotNil(t, root.Flags().Lookup("sweep-interval"))
}

func TestViperForCmd_FlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/exam")
	t.Setenv("PORT", "9000")

	cmd := serveCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--db-driver", "memory", "--sweep-interval", "45s"}))

	cfg, err := config.LoadFrom(viperForCmd(cmd))
	require.NoError(t, err)

	assert.Equal(t, config.DriverMemory, cfg.DBDriver)
	assert.Equal(t, 45*time.Second, cfg.SweepInterval)
	assert.Equal(t, "9000", cfg.Port, "unset flags fall through to the environment")
}
