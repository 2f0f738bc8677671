package assistant

import (
	"context"
	"errors"

	"github.com/rpggio/benefits-portal/internal/catalog"
	"github.com/rpggio/benefits-portal/internal/executor"
	"github.com/rpggio/benefits-portal/internal/format"
	"github.com/rpggio/benefits-portal/internal/policy"
	"github.com/rpggio/benefits-portal/internal/query"
	"github.com/rpggio/benefits-portal/internal/translate"
)

// Kind is the shape of a reply.
type Kind string

const (
	KindText   Kind = "text"
	KindScalar Kind = Kind(format.KindScalar)
	KindTable  Kind = Kind(format.KindTable)
	KindEmpty  Kind = Kind(format.KindEmpty)
	KindError  Kind = "error"
)

// Trace reports which data paths served a reply.
type Trace struct {
	CatalogOrigin catalog.Origin       `json:"catalog_origin,omitempty"`
	Channel       executor.ChannelName `json:"channel,omitempty"`
}

// Reply is the assistant's answer to one question.
type Reply struct {
	Kind    Kind            `json:"kind"`
	Text    string          `json:"text"`
	Payload *format.Payload `json:"payload,omitempty"`
	Trace   Trace           `json:"trace"`
}

// User-facing failure sentences. They never carry internal detail.
const (
	msgUnavailable   = "The assistant isn't available right now. Please contact your benefits administrator."
	msgUnknownMetric = "I don't have data for that yet. Try asking about your deductible or your claims."
	msgNotUnderstood = "I couldn't understand that question. Could you rephrase it?"
	msgNoData        = "I couldn't retrieve your data right now. Please try again in a moment."
	msgGeneric       = "Something went wrong while answering your question. Please try again."
)

func userMessage(err error) string {
	switch {
	case errors.Is(err, query.ErrConfiguration), errors.Is(err, policy.ErrDenied):
		return msgUnavailable
	case errors.Is(err, query.ErrUnknownMetric), errors.Is(err, query.ErrUnknownDimension):
		return msgUnknownMetric
	case errors.Is(err, executor.ErrQueryExecution), errors.Is(err, translate.ErrModelUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return msgNoData
	case errors.Is(err, translate.ErrTranslation):
		return msgNotUnderstood
	default:
		return msgGeneric
	}
}
