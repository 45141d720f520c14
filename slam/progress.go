package slam

import (
	"github.com/pterm/pterm"

	"github.com/alejandrofontan/DROID-SLAM/logging"
)

type progress interface {
	Increment()
	Stop()
}

type noopProgress struct{}

func (noopProgress) Increment() {}

func (noopProgress) Stop() {}

type barProgress struct {
	bar    *pterm.ProgressbarPrinter
	logger logging.Logger
}

func (p *barProgress) Increment() {
	p.bar.Increment()
}

func (p *barProgress) Stop() {
	if _, err := p.bar.Stop(); err != nil {
		p.logger.Debugw("cannot stop progress bar", "error", err)
	}
}

func newProgress(enabled bool, total int, logger logging.Logger) progress {
	if !enabled || total == 0 {
		return noopProgress{}
	}
	bar, err := pterm.DefaultProgressbar.
		WithTotal(total).
		WithTitle("tracking").
		WithRemoveWhenDone(false).
		Start()
	if err != nil {
		logger.Debugw("progress bar unavailable", "error", err)
		return noopProgress{}
	}
	return &barProgress{bar: bar, logger: logger}
}
