package common

import (
	"bytes"
	"github.com/lni/dragonboat/v4/logger"
	"strings"
	"testing"
)

func TestLineLoggerLevels(t *testing.T) {
	tests := []struct {
		level logger.LogLevel
		want  []string
	}{
		{logger.DEBUG, []string{"DEBUG | test | d", "INFO  | test | i", "WARN  | test | w", "ERROR | test | e"}},
		{logger.INFO, []string{"INFO  | test | i", "WARN  | test | w", "ERROR | test | e"}},
		{logger.WARNING, []string{"WARN  | test | w", "ERROR | test | e"}},
		{logger.ERROR, []string{"ERROR | test | e"}},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(levelLabels[tt.level]), func(t *testing.T) {
			var buf bytes.Buffer
			l := newLineLogger("test", &buf)
			l.SetLevel(tt.level)

			l.Debugf("%s", "d")
			l.Infof("%s", "i")
			l.Warningf("%s", "w")
			l.Errorf("%s", "e")

			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			if len(lines) != len(tt.want) {
				t.Fatalf("Expected %d lines, got %q", len(tt.want), buf.String())
			}
			for i, want := range tt.want {
				if !strings.HasSuffix(lines[i], want) {
					t.Errorf("line %d = %q, want suffix %q", i, lines[i], want)
				}
			}
		})
	}
}

func TestLineLoggerPanicf(t *testing.T) {
	var buf bytes.Buffer
	l := newLineLogger("test", &buf)
	l.SetLevel(logger.ERROR)

	defer func() {
		if r := recover(); r != "boom 1" {
			t.Errorf("Expected panic with %q, got %v", "boom 1", r)
		}
		if !strings.Contains(buf.String(), "PANIC | test | boom 1") {
			t.Errorf("Expected the panic to be logged, got %q", buf.String())
		}
	}()
	l.Panicf("boom %d", 1)
}
