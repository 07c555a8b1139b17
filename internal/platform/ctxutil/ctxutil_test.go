package ctxutil

import (
	"context"
	"testing"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	if GetTraceData(ctx) != nil || GetRequestData(ctx) != nil {
		t.Fatalf("empty context should carry no data")
	}
	ctx = WithTraceData(ctx, &TraceData{TraceID: "t1", RequestID: "r1"})
	ctx = WithRequestData(ctx, &RequestData{StudentID: "s1", SessionID: "sess"})
	if td := GetTraceData(ctx); td == nil || td.TraceID != "t1" {
		t.Fatalf("trace data lost: %+v", td)
	}
	if rd := GetRequestData(ctx); rd == nil || rd.SessionID != "sess" {
		t.Fatalf("request data lost: %+v", rd)
	}
}
