package build

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btclog"
	"github.com/stretchr/testify/require"
)

func newTestWriter() *RotatingLogWriter {
	w := NewRotatingLogWriter()
	for _, subsystem := range []string{"ZPAY", "FEAT", "CREG"} {
		w.RegisterSubLogger(subsystem, w.GenSubLogger(subsystem))
	}

	return w
}

// TestParseAndSetDebugLevels checks the global and per subsystem debug level
// syntax.
func TestParseAndSetDebugLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		level  string
		levels map[string]btclog.Level
		valid  bool
	}{
		{
			name:  "global",
			level: "debug",
			levels: map[string]btclog.Level{
				"ZPAY": btclog.LevelDebug,
				"FEAT": btclog.LevelDebug,
				"CREG": btclog.LevelDebug,
			},
			valid: true,
		},
		{
			name:  "global and subsystem",
			level: "warn,ZPAY=trace",
			levels: map[string]btclog.Level{
				"ZPAY": btclog.LevelTrace,
				"FEAT": btclog.LevelWarn,
				"CREG": btclog.LevelWarn,
			},
			valid: true,
		},
		{
			name:  "subsystems only",
			level: "FEAT=off,CREG=error",
			levels: map[string]btclog.Level{
				"ZPAY": btclog.LevelInfo,
				"FEAT": btclog.LevelOff,
				"CREG": btclog.LevelError,
			},
			valid: true,
		},
		{
			name:  "invalid global",
			level: "verbose",
		},
		{
			name:  "unknown subsystem",
			level: "info,PEER=debug",
		},
		{
			name:  "invalid subsystem level",
			level: "ZPAY=loud",
		},
		{
			name:  "missing level",
			level: "info,ZPAY",
		},
		{
			name:  "double assignment",
			level: "ZPAY=info=debug",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			w := newTestWriter()
			w.SetLogLevels("info")

			err := ParseAndSetDebugLevels(test.level, w)
			if !test.valid {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			for subsystem, level := range test.levels {
				require.Equal(
					t, level, w.SubLoggers()[subsystem].Level(),
					subsystem,
				)
			}
		})
	}
}

func TestSupportedSubsystems(t *testing.T) {
	t.Parallel()

	require.Equal(
		t, []string{"CREG", "FEAT", "ZPAY"},
		newTestWriter().SupportedSubsystems(),
	)
}

func TestLogConfigValidate(t *testing.T) {
	t.Parallel()

	cfg := DefaultLogConfig()
	require.NoError(t, cfg.Validate())
	require.Empty(t, cfg.BackendOptions())

	cfg.CallSite = callSiteShort
	require.NoError(t, cfg.Validate())
	require.Len(t, cfg.BackendOptions(), 1)

	cfg.CallSite = "everywhere"
	require.Error(t, cfg.Validate())

	cfg = DefaultLogConfig()
	cfg.File.Compressor = "lz4"
	require.Error(t, cfg.Validate())

	cfg = DefaultLogConfig()
	cfg.File.MaxLogFileSize = 0
	require.Error(t, cfg.Validate())
}

// TestInitLogRotator checks that the rotator creates the log file for both
// compressors and refuses unknown ones.
func TestInitLogRotator(t *testing.T) {
	t.Parallel()

	for _, compressor := range []string{Gzip, Zstd} {
		t.Run(compressor, func(t *testing.T) {
			t.Parallel()

			logFile := filepath.Join(t.TempDir(), "logs", "test.log")

			cfg := DefaultLogConfig().File
			cfg.Compressor = compressor

			w := NewRotatingLogWriter()
			require.NoError(t, w.InitLogRotator(cfg, logFile))
			require.NoError(t, w.Close())

			_, err := os.Stat(logFile)
			require.NoError(t, err)
		})
	}

	cfg := DefaultLogConfig().File
	cfg.Compressor = "lz4"

	w := NewRotatingLogWriter()
	err := w.InitLogRotator(cfg, filepath.Join(t.TempDir(), "test.log"))
	require.Error(t, err)
}
