package ctxutil

import "context"

type requestDataKey struct{}

// RequestData carries the learner a request is acting for, so that logs and
// spans deep inside the agent layer can be correlated without threading ids.
type RequestData struct {
	StudentID string
	SessionID string
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		return rd
	}
	return nil
}
