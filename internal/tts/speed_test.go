package tts

import "testing"

func TestValidateSpeed(t *testing.T) {
	for _, speed := range []float64{0.5, 1.0, 2.0} {
		if err := ValidateSpeed(speed); err != nil {
			t.Errorf("ValidateSpeed(%v) = %v", speed, err)
		}
	}
	for _, speed := range []float64{0, 0.49, 2.01, -1} {
		if err := ValidateSpeed(speed); err == nil {
			t.Errorf("ValidateSpeed(%v) should fail", speed)
		}
	}
}

func TestSpeedConversions(t *testing.T) {
	tests := []struct {
		speed      float64
		piper      string
		edge       string
		gttsSlow   bool
		googleRate float64
	}{
		{speed: 1.0, piper: "1.00", edge: "+0%", gttsSlow: false, googleRate: 1.0},
		{speed: 0.5, piper: "2.00", edge: "-50%", gttsSlow: true, googleRate: 0.5},
		{speed: 2.0, piper: "0.50", edge: "+100%", gttsSlow: false, googleRate: 2.0},
		{speed: 1.25, piper: "0.80", edge: "+25%", gttsSlow: false, googleRate: 1.25},
		{speed: 0, piper: "1.00", edge: "+0%", gttsSlow: false, googleRate: 1.0},
	}

	for _, tt := range tests {
		if got := ToPiperScale(tt.speed); got != tt.piper {
			t.Errorf("ToPiperScale(%v) = %q, want %q", tt.speed, got, tt.piper)
		}
		if got := ToEdgeRate(tt.speed); got != tt.edge {
			t.Errorf("ToEdgeRate(%v) = %q, want %q", tt.speed, got, tt.edge)
		}
		if got := ToGTTSSlow(tt.speed); got != tt.gttsSlow {
			t.Errorf("ToGTTSSlow(%v) = %v, want %v", tt.speed, got, tt.gttsSlow)
		}
		if got := ToGoogleRate(tt.speed); got != tt.googleRate {
			t.Errorf("ToGoogleRate(%v) = %v, want %v", tt.speed, got, tt.googleRate)
		}
	}
}

func TestEdgePitchAndVolume(t *testing.T) {
	if got := ToEdgePitch(2); got != "+24Hz" {
		t.Errorf("ToEdgePitch(2) = %q", got)
	}
	if got := ToEdgePitch(-0.5); got != "-6Hz" {
		t.Errorf("ToEdgePitch(-0.5) = %q", got)
	}
	if got := ToEdgeVolume(-10); got != "-10%" {
		t.Errorf("ToEdgeVolume(-10) = %q", got)
	}
}

func TestTTSError(t *testing.T) {
	err := NewTTSError(ErrorCodeEngineFailure, "test error", ErrSynthesisFailed).WithContext("engine", "piper")
	if err.Context["engine"] != "piper" {
		t.Errorf("Expected context to contain engine=piper")
	}
	if err.IsFatal() || err.IsRetryable() {
		t.Error("engine failure should only fail the row")
	}

	for _, code := range []ErrorCode{ErrorCodeEngineUnavailable, ErrorCodeCanceled, ErrorCodeResourceExhausted} {
		if !NewTTSError(code, "x", nil).IsFatal() {
			t.Errorf("%s should be fatal", code)
		}
	}
	if !NewTTSError(ErrorCodeEngineTimeout, "x", nil).IsRetryable() {
		t.Error("timeout should be retryable")
	}
}
