package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRequest(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/recipes", "200"))
	RecordRequest("GET", "/api/recipes", 200, 15*time.Millisecond)
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/recipes", "200"))
	if after-before != 1 {
		t.Fatalf("counter delta = %v, want 1", after-before)
	}

	RecordRequest("GET", "", 404, time.Millisecond)
	if testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")) < 1 {
		t.Fatalf("empty route should be recorded as unmatched")
	}
}

func TestRecordUploadAndReview(t *testing.T) {
	bytesBefore := testutil.ToFloat64(UploadBytes)
	RecordUpload("success", 2048)
	RecordUpload("too_large", 9999)
	if got := testutil.ToFloat64(UploadBytes) - bytesBefore; got != 2048 {
		t.Fatalf("upload bytes delta = %v, want 2048", got)
	}

	before := testutil.ToFloat64(ReviewSubmissions.WithLabelValues("accepted"))
	RecordReview("accepted")
	if testutil.ToFloat64(ReviewSubmissions.WithLabelValues("accepted"))-before != 1 {
		t.Fatalf("review counter not incremented")
	}
}

func TestRecordOllama(t *testing.T) {
	before := testutil.ToFloat64(OllamaRequests.WithLabelValues("rejected"))
	RecordOllama("rejected", time.Second)
	if testutil.ToFloat64(OllamaRequests.WithLabelValues("rejected"))-before != 1 {
		t.Fatalf("rejected counter not incremented")
	}
}

func TestUpdatePoolStatsNil(t *testing.T) {
	UpdatePoolStats(nil)
}
