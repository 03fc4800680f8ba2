package plugin

import (
	"errors"
	"fmt"

	"github.com/dshills/oxbow/internal/protocol"
)

// handleResponse applies a plugin response. It never panics out to the
// channel; every response type has a reaction or a warning.
func (m *Manager) handleResponse(r Response) {
	defer func() {
		if rec := recover(); rec != nil {
			m.logger.Error("panic handling %q response: %v", r.Type, rec)
		}
	}()

	t, known := ParseResponseType(r.Type)
	if !known {
		m.metrics.UnknownResponse()
		m.warn(r.Meta.Plugin, "Unexpected plugin type: "+r.Type)
		return
	}
	m.metrics.ResponseReceived(string(t))

	if r.HasError() {
		m.logger.Debug("%s response from %s reported an error: %s", t, r.Meta.Plugin, r.Error)
		return
	}

	if t.Correlated() && !m.validate(t, r.Meta) {
		m.metrics.StaleResponse(string(t))
		return
	}

	var err error
	switch t {
	case ResponseShowQuickInfo:
		err = m.showQuickInfo(r)
	case ResponseGotoDefinition:
		err = m.gotoDefinition(r)
	case ResponseCompletionProvider:
		err = m.showCompletions(r)
	case ResponseCompletionItemSelected:
		err = m.showCompletionDetails(r)
	case ResponseSetErrors:
		var p SetErrorsPayload
		if err = r.Decode(&p); err == nil {
			m.emit(Event{Kind: EventSetErrors, Plugin: r.Meta.Plugin, Errors: &p})
		}
	case ResponseFindAllReferences:
		var p ReferencesPayload
		if err = r.Decode(&p); err == nil {
			m.emit(Event{Kind: EventFindAllReferences, Plugin: r.Meta.Plugin, References: p.References})
		}
	case ResponseFormat:
		var p protocol.FormatResult
		if err = r.Decode(&p); err == nil {
			m.emit(Event{Kind: EventFormat, Plugin: r.Meta.Plugin, Format: &p})
		}
	case ResponseSetSyntaxHighlights, ResponseClearSyntaxHighlights:
		kind := EventSetSyntaxHighlights
		if t == ResponseClearSyntaxHighlights {
			kind = EventClearSyntaxHighlights
		}
		var p protocol.SyntaxHighlights
		if err = r.Decode(&p); err == nil {
			m.emit(Event{Kind: kind, Plugin: r.Meta.Plugin, Highlights: &p})
		}
	default:
		m.warn(r.Meta.Plugin, "Unhandled plugin type: "+r.Type)
	}

	if err != nil {
		m.warn(r.Meta.Plugin, fmt.Sprintf("malformed %s response: %v", t, err))
	}
}

// validate reports whether a correlated response still applies: its origin
// must match the current event context on buffer, line and column, and a
// request id, when present, must be the latest one sent for its type.
func (m *Manager) validate(t ResponseType, meta ResponseMeta) bool {
	m.mu.Lock()
	current := m.current
	latest := m.pending[t]
	m.mu.Unlock()

	origin := meta.OriginEvent
	switch {
	case current == nil || origin == nil:
		m.logger.Debug("%s response discarded: no event context to compare", t)
		return false
	case !origin.SamePosition(*current):
		m.logger.Debug("%s response discarded: origin %s:%d:%d does not match current %s:%d:%d",
			t, origin.BufferFullPath, origin.Line, origin.Column,
			current.BufferFullPath, current.Line, current.Column)
		return false
	case meta.RequestID != "" && latest != "" && meta.RequestID != latest:
		m.logger.Debug("%s response discarded: request %s superseded by %s", t, meta.RequestID, latest)
		return false
	}
	return true
}

func (m *Manager) showQuickInfo(r Response) error {
	origin := r.Meta.OriginEvent
	if origin == nil {
		return errors.New("missing origin event")
	}
	var info protocol.QuickInfo
	if err := r.Decode(&info); err != nil {
		return err
	}

	o := *origin
	m.scheduler.AfterFunc(m.config.Get().QuickInfoDelay(), func() {
		m.ui.ShowQuickInfo(o.BufferFullPath, o.Line, o.Column, info)
	})
	return nil
}

func (m *Manager) gotoDefinition(r Response) error {
	var def protocol.Definition
	if err := r.Decode(&def); err != nil {
		return err
	}

	m.mu.Lock()
	editor := m.editor
	m.mu.Unlock()
	if editor == nil {
		return ErrNotStarted
	}

	for _, cmd := range []string{
		"e! " + def.FilePath,
		fmt.Sprintf("cal cursor(%d, %d)", def.Line, def.Column),
		"norm zz",
	} {
		if err := editor.Command(cmd); err != nil {
			m.logger.Warn("goto-definition command %q: %v", cmd, err)
			return nil
		}
	}
	return nil
}

func (m *Manager) showCompletions(r Response) error {
	var list protocol.CompletionList
	if err := r.Decode(&list); err != nil {
		if errors.Is(err, ErrEmptyPayload) {
			return nil
		}
		return err
	}
	m.scheduler.AfterFunc(0, func() {
		m.ui.ShowCompletions(list)
	})
	return nil
}

func (m *Manager) showCompletionDetails(r Response) error {
	var p CompletionDetailsPayload
	if err := r.Decode(&p); err != nil {
		return err
	}
	m.scheduler.AfterFunc(0, func() {
		m.ui.SetDetailedCompletionEntry(p.Details)
	})
	return nil
}
