package analytics

import "testing"

func TestStoreRecordAndDrain(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.RecordOK(1, 0, 120)
	s.RecordOK(1, 0, 80)
	s.RecordFail(1, 0)
	s.RecordTimeout(1, 0)

	b := s.Drain(1, 0)
	if b == nil {
		t.Fatalf("Drain(1, 0) = nil, want a populated bucket")
	}
	if b.OK != 2 || b.Fail != 1 || b.Timeout != 1 {
		t.Fatalf("bucket = %+v, want OK=2 Fail=1 Timeout=1", b)
	}
	if len(b.Latencies) != 2 {
		t.Fatalf("len(Latencies) = %d, want 2", len(b.Latencies))
	}

	if again := s.Drain(1, 0); again != nil {
		t.Fatalf("Drain after drain = %+v, want nil", again)
	}
}

func TestStoreReapOutsideCycle(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.RecordOK(1, 0, 100)
	s.RecordOK(1, 1, 100)
	s.RecordOK(2, 0, 100)

	removed := s.ReapOutsideCycle(2)
	if removed != 2 {
		t.Fatalf("ReapOutsideCycle removed %d buckets, want 2", removed)
	}

	if b := s.Drain(1, 0); b != nil {
		t.Fatalf("Drain(1, 0) after reap = %+v, want nil", b)
	}
	if b := s.Drain(2, 0); b == nil {
		t.Fatalf("Drain(2, 0) after reap = nil, want the still-active cycle's bucket")
	}
}

func TestLatencyStats(t *testing.T) {
	t.Parallel()

	avg, p99 := latencyStats(nil)
	if avg != 0 || p99 != 0 {
		t.Fatalf("latencyStats(nil) = (%v, %v), want (0, 0)", avg, p99)
	}

	samples := []float64{10, 20, 30, 40, 100}
	avg, p99 = latencyStats(samples)
	if avg != 40 {
		t.Fatalf("avg = %v, want 40", avg)
	}
	if p99 != 100 {
		t.Fatalf("p99 = %v, want 100 (the max of a 5-sample set)", p99)
	}
}
