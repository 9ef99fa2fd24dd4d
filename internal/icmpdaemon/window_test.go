package icmpdaemon

import "testing"

func TestWindowCapsAtDaemonMax(t *testing.T) {
	w := newWindow(0) // window=0 means "admit immediately" -> daemon max
	if w.limit != 200 {
		t.Errorf("limit = %d, want 200 (DaemonMaxInFlight)", w.limit)
	}
}

func TestWindowHonorsSmallerRequestValue(t *testing.T) {
	w := newWindow(5)
	if w.limit != 5 {
		t.Errorf("limit = %d, want 5", w.limit)
	}
}

func TestWindowAdmitRelease(t *testing.T) {
	w := newWindow(2)
	if !w.canAdmit() {
		t.Fatal("expected room to admit")
	}
	w.admit()
	w.admit()
	if w.canAdmit() {
		t.Fatal("window should be full")
	}
	w.release()
	if !w.canAdmit() {
		t.Fatal("expected room after release")
	}
}

func TestWindowReleaseNeverGoesNegative(t *testing.T) {
	w := newWindow(1)
	w.release()
	w.release()
	if w.current != 0 {
		t.Errorf("current = %d, want 0", w.current)
	}
}
