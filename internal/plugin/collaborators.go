package plugin

import (
	"time"

	"github.com/dshills/oxbow/internal/protocol"
)

// Editor is the editing engine the Manager serves.
type Editor interface {
	// OnEvent subscribes to editor events and returns an unsubscribe func.
	OnEvent(handler func(name string, ctx EventContext)) func()

	// Command runs an editor command line.
	Command(cmd string) error
}

// UI receives the results the Manager displays.
type UI interface {
	ShowQuickInfo(file string, line, column int, info protocol.QuickInfo)
	ShowCompletions(list protocol.CompletionList)
	SetDetailedCompletionEntry(item protocol.CompletionItem)
}

// Scheduler runs deferred UI work.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func())
}

type timerScheduler struct{}

func (timerScheduler) AfterFunc(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

type nopUI struct{}

func (nopUI) ShowQuickInfo(string, int, int, protocol.QuickInfo) {}
func (nopUI) ShowCompletions(protocol.CompletionList)              {}
func (nopUI) SetDetailedCompletionEntry(protocol.CompletionItem)   {}
