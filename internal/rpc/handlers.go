package rpc

import (
	"context"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"errors"
	"time"

	"github.com/convomarkapp/convomark-host/internal/color"
	"github.com/convomarkapp/convomark-host/internal/domain"
	apperrors "github.com/convomarkapp/convomark-host/internal/errors"
	"github.com/convomarkapp/convomark-host/internal/search"
	"github.com/convomarkapp/convomark-host/internal/store"
	"github.com/convomarkapp/convomark-host/internal/util"
	"github.com/convomarkapp/convomark-host/internal/validation"
)

// RegisterStoreHandlers binds every store-backed action onto the server.
// The search index may be nil, in which case search-annotations answers
// NOT_READY.
func RegisterStoreHandlers(s *Server, st *store.Store, idx *search.Index) {
	s.Handle(ActionPing, func(ctx context.Context, _ jsontext.Value) (any, error) {
		return map[string]string{"pong": time.Now().UTC().Format(time.RFC3339)}, nil
	})

	s.Handle(ActionPutAnnotation, func(ctx context.Context, payload jsontext.Value) (any, error) {
		var a domain.Annotation
		if err := decodePayload(payload, &a); err != nil {
			return nil, err
		}
		return st.PutAnnotation(ctx, &a)
	})

	s.Handle(ActionGetAnnotation, func(ctx context.Context, payload jsontext.Value) (any, error) {
		var p IDPayload
		if err := decodePayload(payload, &p); err != nil {
			return nil, err
		}
		return absentAsNull(st.GetAnnotation(ctx, p.ID))
	})

	s.Handle(ActionListAnnotations, func(ctx context.Context, payload jsontext.Value) (any, error) {
		filters, err := decodeFilters(payload)
		if err != nil {
			return nil, err
		}
		return st.ListAnnotations(ctx, filters...)
	})

	s.Handle(ActionDeleteAnnotation, func(ctx context.Context, payload jsontext.Value) (any, error) {
		var p IDPayload
		if err := decodePayload(payload, &p); err != nil {
			return nil, err
		}
		deleted, err := st.DeleteAnnotation(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		return DeletedPayload{Deleted: deleted}, nil
	})

	s.Handle(ActionPutMessageAnnotation, func(ctx context.Context, payload jsontext.Value) (any, error) {
		var m domain.MessageAnnotation
		if err := decodePayload(payload, &m); err != nil {
			return nil, err
		}
		return st.PutMessageAnnotation(ctx, &m)
	})

	s.Handle(ActionGetMessageAnnotation, func(ctx context.Context, payload jsontext.Value) (any, error) {
		var p IDPayload
		if err := decodePayload(payload, &p); err != nil {
			return nil, err
		}
		return absentAsNull(st.GetMessageAnnotation(ctx, p.ID))
	})

	s.Handle(ActionListMessageAnnotations, func(ctx context.Context, payload jsontext.Value) (any, error) {
		filters, err := decodeFilters(payload)
		if err != nil {
			return nil, err
		}
		return st.ListMessageAnnotations(ctx, filters...)
	})

	s.Handle(ActionDeleteMessageAnnotation, func(ctx context.Context, payload jsontext.Value) (any, error) {
		var p IDPayload
		if err := decodePayload(payload, &p); err != nil {
			return nil, err
		}
		deleted, err := st.DeleteMessageAnnotation(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		return DeletedPayload{Deleted: deleted}, nil
	})

	s.Handle(ActionPutReminder, func(ctx context.Context, payload jsontext.Value) (any, error) {
		var r domain.Reminder
		if err := decodePayload(payload, &r); err != nil {
			return nil, err
		}
		return st.PutReminder(ctx, &r)
	})

	s.Handle(ActionGetReminder, func(ctx context.Context, payload jsontext.Value) (any, error) {
		var p IDPayload
		if err := decodePayload(payload, &p); err != nil {
			return nil, err
		}
		return absentAsNull(st.GetReminder(ctx, p.ID))
	})

	s.Handle(ActionListReminders, func(ctx context.Context, _ jsontext.Value) (any, error) {
		return st.ListReminders(ctx)
	})

	s.Handle(ActionDeleteReminder, func(ctx context.Context, payload jsontext.Value) (any, error) {
		var p IDPayload
		if err := decodePayload(payload, &p); err != nil {
			return nil, err
		}
		deleted, err := st.DeleteReminder(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		return DeletedPayload{Deleted: deleted}, nil
	})

	s.Handle(ActionPutLabel, func(ctx context.Context, payload jsontext.Value) (any, error) {
		var p PutLabelPayload
		if err := decodePayload(payload, &p); err != nil {
			return nil, err
		}
		slug := p.ID
		if slug == "" {
			slug = util.NormalizeLabelSlug(p.DisplayName)
		}
		if slug == "" {
			return nil, apperrors.Validation("display name yields an empty label slug")
		}
		c := p.Color
		if c == "" {
			c = color.ForLabel(slug)
		}
		return st.PutLabel(ctx, &domain.Label{ID: slug, DisplayName: p.DisplayName, Color: c})
	})

	s.Handle(ActionListLabels, func(ctx context.Context, _ jsontext.Value) (any, error) {
		return st.ListLabels(ctx)
	})

	s.Handle(ActionDeleteLabel, func(ctx context.Context, payload jsontext.Value) (any, error) {
		var p IDPayload
		if err := decodePayload(payload, &p); err != nil {
			return nil, err
		}
		deleted, err := st.DeleteLabel(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		return DeletedPayload{Deleted: deleted}, nil
	})

	s.Handle(ActionGetSettings, func(ctx context.Context, _ jsontext.Value) (any, error) {
		return st.GetSettings(ctx)
	})

	s.Handle(ActionPatchSettings, func(ctx context.Context, payload jsontext.Value) (any, error) {
		var patch domain.SettingsPatch
		if err := decodePayload(payload, &patch); err != nil {
			return nil, err
		}
		return st.PatchSettings(ctx, &patch)
	})

	s.Handle(ActionExportAll, func(ctx context.Context, _ jsontext.Value) (any, error) {
		return st.ExportAll(ctx)
	})

	s.Handle(ActionImportAll, func(ctx context.Context, payload jsontext.Value) (any, error) {
		var snap domain.Snapshot
		if err := decodePayload(payload, &snap); err != nil {
			return nil, err
		}
		if err := st.ImportAll(ctx, &snap); err != nil {
			return nil, err
		}
		return nil, nil
	})

	s.Handle(ActionSearchAnnotations, func(ctx context.Context, payload jsontext.Value) (any, error) {
		if idx == nil {
			return nil, apperrors.NotReady("search index not available")
		}
		params := search.DefaultParams()
		if len(payload) > 0 {
			if err := decodePayload(payload, &params); err != nil {
				return nil, err
			}
		}
		return idx.Search(ctx, params)
	})

	s.Handle(ActionGetStats, func(ctx context.Context, _ jsontext.Value) (any, error) {
		return st.Stats(ctx)
	})
}

// payloadValidator checks decoded payloads against their validate tags.
var payloadValidator = validation.New()

// decodePayload unmarshals a request payload, mapping malformed input to a
// VALIDATION error rather than INTERNAL.
func decodePayload(payload jsontext.Value, dest any) error {
	if len(payload) == 0 {
		return apperrors.Validation("missing payload")
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return apperrors.Validation("malformed payload: " + err.Error())
	}
	return payloadValidator.Validate(dest)
}

// decodeFilters builds store filters from a list payload. An absent payload
// lists everything.
func decodeFilters(payload jsontext.Value) ([]store.Filter, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	var p ListAnnotationsPayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}

	var filters []store.Filter
	if p.Origin != "" {
		origin, err := domain.ParseOrigin(p.Origin)
		if err != nil {
			return nil, apperrors.Validation(err.Error())
		}
		filters = append(filters, store.ByOrigin(origin))
	}
	if p.Label != "" {
		filters = append(filters, store.ByLabel(p.Label))
	}
	if p.Text != "" {
		filters = append(filters, store.ByText(p.Text))
	}
	if p.Fingerprint != "" {
		filters = append(filters, store.ByFingerprint(p.Fingerprint))
	}
	if p.UpdatedWithinMs > 0 {
		filters = append(filters, store.ByUpdatedWithin(time.Duration(p.UpdatedWithinMs)*time.Millisecond))
	}
	return filters, nil
}

// absentAsNull flattens a NOT_FOUND lookup into an ok response with null
// data. Callers treat "no annotation here" as a normal outcome, not a
// failure.
func absentAsNull[T any](record *T, err error) (any, error) {
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}
