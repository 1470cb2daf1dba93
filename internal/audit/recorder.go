package audit

import (
	"context"

	"github.com/suPer8Hu/n8n-chat/internal/log"
	"github.com/suPer8Hu/n8n-chat/internal/relay"
)

// Recorder writes relay events straight to the database. The API uses it
// when no broker is configured; with RabbitMQ the worker does the writes.
type Recorder struct {
	repo *Repo
}

func NewRecorder(repo *Repo) *Recorder {
	return &Recorder{repo: repo}
}

func (r *Recorder) ObserveRelay(ctx context.Context, evt relay.Event) {
	e, err := FromRelay(evt)
	if err == nil {
		err = r.repo.Insert(context.WithoutCancel(ctx), &e)
	}
	if err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str("reason", string(evt.Reason)).Msg("record relay event failed")
	}
}
