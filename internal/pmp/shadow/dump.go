package shadow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kolkov/riscvpmp/internal/pmp/entry"
)

// logger emits encoder errors and debug register dumps. Replaceable through
// SetLogger so integrators can route output into their kernel log.
var logger = slog.Default().With("component", "pmp.shadow")

// SetLogger replaces the package logger. A nil logger is ignored.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l.With("component", "pmp.shadow")
	}
}

// DumpEntries renders the slot range [start, end) as human-readable ranges
// at debug level. Not part of the functional contract; the decoded output
// mirrors what the hardware would enforce for each slot.
func (s *Store) DumpEntries(start, end int, banner string) {
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	logger.Debug("PMP " + banner)
	for i := start; i < end; i++ {
		cfg := entry.FromByte(s.Cfg[i])

		var prev uintptr
		if i > 0 {
			prev = s.Addr[i-1]
		}

		lo, hi, ok := entry.DecodeRegion(cfg.Mode, s.Addr[i], prev)
		if !ok {
			logger.Debug(fmt.Sprintf("%3d: 0x%016x 0x%02x", i, s.Addr[i], s.Cfg[i]))
			continue
		}

		locked := ""
		if cfg.Locked {
			locked = " LOCKED"
		}
		logger.Debug(fmt.Sprintf("%3d: 0x%016x 0x%02x --> 0x%x-0x%x %s%s",
			i, s.Addr[i], s.Cfg[i], lo, hi, cfg.Perm, locked))
	}
}
