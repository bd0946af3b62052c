package live

import (
	"github.com/josh-kwaku/rice-ledger/internal/calc"
	"github.com/josh-kwaku/rice-ledger/internal/domain"
	"github.com/josh-kwaku/rice-ledger/internal/handler"
	"github.com/josh-kwaku/rice-ledger/internal/ledger"
	"github.com/josh-kwaku/rice-ledger/internal/session"
)

// Client message types.
const (
	msgActivate      = "activate"
	msgInput         = "input"
	msgKey           = "key"
	msgCommit        = "commit"
	msgCancel        = "cancel"
	msgSelect        = "select"
	msgQuery         = "query"
	msgSort          = "sort"
	msgAddRow        = "add_row"
	msgDelete        = "delete"
	msgConfirmDelete = "confirm_delete"
	msgDismissDelete = "dismiss_delete"
)

// Server message types.
const (
	msgRender = "render"
	msgRow    = "row"
	msgState  = "state"
	msgError  = "error"
)

type clientMessage struct {
	Type     string        `json:"type"`
	RecordID string        `json:"record_id,omitempty"`
	Field    string        `json:"field,omitempty"`
	Text     string        `json:"text,omitempty"`
	Key      string        `json:"key,omitempty"`
	Shift    bool          `json:"shift,omitempty"`
	Index    int           `json:"index,omitempty"`
	AfterID  string        `json:"after_id,omitempty"`
	Query    *ledger.Query `json:"query,omitempty"`
}

type rowDTO struct {
	domain.Record
	Tone calc.Tone `json:"tone,omitempty"`
}

type stateDTO struct {
	Mode          string   `json:"mode"`
	RecordID      string   `json:"record_id,omitempty"`
	Field         string   `json:"field,omitempty"`
	Draft         string   `json:"draft"`
	Suggestions   []string `json:"suggestions,omitempty"`
	Highlight     int      `json:"highlight"`
	PendingDelete string   `json:"pending_delete,omitempty"`
}

type errorDTO struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type serverMessage struct {
	Type     string        `json:"type"`
	Rows     []rowDTO      `json:"rows,omitempty"`
	Stats    *ledger.Stats `json:"stats,omitempty"`
	Record   *rowDTO       `json:"record,omitempty"`
	State    *stateDTO     `json:"state,omitempty"`
	RecordID string        `json:"record_id,omitempty"`
	Error    *errorDTO     `json:"error,omitempty"`
}

func toRow(c *calc.Calculator, r domain.Record) rowDTO {
	return rowDTO{Record: r, Tone: c.Tone(r)}
}

func toState(s session.State) *stateDTO {
	dto := &stateDTO{
		Mode:          s.Mode.String(),
		Draft:         s.Draft,
		Suggestions:   s.Suggestions,
		Highlight:     s.Highlight,
		PendingDelete: s.PendingDelete,
	}
	if s.Mode == session.ModeEditing {
		dto.RecordID = s.Cell.RecordID
		dto.Field = s.Cell.Field.Key()
	}
	return dto
}

// toMessage converts a session event into its wire form. Errors carry the
// request id of the websocket upgrade so a report can be matched to the log.
func toMessage(c *calc.Calculator, ev session.Event, requestID string) serverMessage {
	switch e := ev.(type) {
	case session.RenderEvent:
		rows := make([]rowDTO, 0, len(e.Rows))
		for _, r := range e.Rows {
			rows = append(rows, toRow(c, r))
		}
		stats := e.Stats
		return serverMessage{Type: msgRender, Rows: rows, Stats: &stats}
	case session.RowEvent:
		row := toRow(c, e.Record)
		return serverMessage{Type: msgRow, Record: &row}
	case session.StateEvent:
		return serverMessage{Type: msgState, State: toState(e.State)}
	case session.ErrorEvent:
		msg := errorMessage(e.Err, requestID)
		msg.RecordID = e.RecordID
		return msg
	}
	return serverMessage{Type: msgError, Error: &errorDTO{Code: handler.ErrInternalError.Code, Message: "unknown event", RequestID: requestID}}
}

func errorMessage(err error, requestID string) serverMessage {
	appErr := handler.AppErrorFor(err)
	msg := appErr.Message
	if appErr == handler.ErrInternalError {
		msg = "The change could not be saved"
	}
	return serverMessage{Type: msgError, Error: &errorDTO{Code: appErr.Code, Message: msg, RequestID: requestID}}
}
