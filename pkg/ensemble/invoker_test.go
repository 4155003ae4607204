package ensemble

import (
	"errors"
	"testing"

	"laptopprice/pkg/model"
)

type stubModel struct {
	price float64
	err   error
	calls int
}

func (s *stubModel) Predict(x []float64) (float64, error) {
	s.calls++
	return s.price, s.err
}
func (s *stubModel) Type() string     { return "stub" }
func (s *stubModel) NumFeatures() int { return 0 }

var _ model.Regressor = (*stubModel)(nil)

func TestNewSelection(t *testing.T) {
	tests := []struct {
		knn, rf bool
		want    Selection
		str     string
	}{
		{false, false, SelectNone, "none"},
		{true, false, SelectKNN, "knn"},
		{false, true, SelectRandomForest, "random_forest"},
		{true, true, SelectBoth, "knn+random_forest"},
	}
	for _, tt := range tests {
		got := NewSelection(tt.knn, tt.rf)
		if got != tt.want {
			t.Errorf("NewSelection(%v, %v) = %v, want %v", tt.knn, tt.rf, got, tt.want)
		}
		if got.String() != tt.str {
			t.Errorf("String() = %q, want %q", got.String(), tt.str)
		}
		parsed, err := ParseSelection(tt.str)
		if err != nil || parsed != tt.want {
			t.Errorf("ParseSelection(%q) = %v, %v", tt.str, parsed, err)
		}
	}
	if _, err := ParseSelection("svm"); err == nil {
		t.Error("expected error for unknown selection")
	}
}

func TestInvokeNoSelection(t *testing.T) {
	knn, rf := &stubModel{price: 1}, &stubModel{price: 2}
	inv := NewInvoker(Models{KNN: knn, RandomForest: rf})

	_, err := inv.Invoke([]float64{1}, SelectNone)
	if !errors.Is(err, ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection, got %v", err)
	}
	if knn.calls+rf.calls != 0 {
		t.Fatalf("models invoked without selection")
	}
}

func TestInvokeSingleModel(t *testing.T) {
	inv := NewInvoker(Models{KNN: &stubModel{price: 700.456}, RandomForest: &stubModel{price: 9999}})
	res, err := inv.Invoke(nil, SelectKNN)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if res.Price != 700.46 {
		t.Fatalf("price: got %v, want 700.46", res.Price)
	}
	if len(res.Outputs) != 1 || res.Outputs[0].Model != MemberKNN {
		t.Fatalf("outputs: %+v", res.Outputs)
	}
}

func TestInvokeBothAverages(t *testing.T) {
	inv := NewInvoker(Models{KNN: &stubModel{price: 700}, RandomForest: &stubModel{price: 750}})
	res, err := inv.Invoke([]float64{1, 2}, SelectBoth)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if res.Price != 725 {
		t.Fatalf("price: got %v, want 725", res.Price)
	}

	inv = NewInvoker(Models{KNN: &stubModel{price: 100.111}, RandomForest: &stubModel{price: 200.222}})
	res, err = inv.Invoke(nil, SelectBoth)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if want := Round2((100.111 + 200.222) / 2); res.Price != want {
		t.Fatalf("price: got %v, want %v", res.Price, want)
	}

	// 100.125 is exact in binary; ties go to the even cent.
	inv = NewInvoker(Models{KNN: &stubModel{price: 100.25}, RandomForest: &stubModel{price: 100}})
	res, err = inv.Invoke(nil, SelectBoth)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if res.Price != 100.12 {
		t.Fatalf("price: got %v, want 100.12", res.Price)
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.125, 0.12},
		{0.375, 0.38},
		{100.125, 100.12},
		{-0.125, -0.12},
		{700.456, 700.46},
		{725, 725},
	}
	for _, tt := range tests {
		if got := Round2(tt.in); got != tt.want {
			t.Errorf("Round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInvokeInvalidSelection(t *testing.T) {
	knn := &stubModel{price: 1}
	inv := NewInvoker(Models{KNN: knn, RandomForest: &stubModel{price: 2}})

	_, err := inv.Invoke(nil, Selection(7))
	if !errors.Is(err, ErrInvalidSelection) {
		t.Fatalf("expected ErrInvalidSelection, got %v", err)
	}
	if knn.calls != 0 {
		t.Fatalf("model invoked for invalid selection")
	}
	if got := Selection(7).String(); got != "invalid(7)" {
		t.Fatalf("String() = %q", got)
	}
	if len(Selection(7).Members()) != 0 {
		t.Fatal("invalid selection should have no members")
	}
}

func TestInvokeModelFailure(t *testing.T) {
	boom := errors.New("shape mismatch")
	inv := NewInvoker(Models{KNN: &stubModel{price: 1}, RandomForest: &stubModel{err: boom}})

	_, err := inv.Invoke(nil, SelectBoth)
	var ie *InvocationError
	if !errors.As(err, &ie) {
		t.Fatalf("expected InvocationError, got %v", err)
	}
	if ie.Model != MemberRandomForest || !errors.Is(err, boom) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestInvokeMissingModel(t *testing.T) {
	inv := NewInvoker(Models{KNN: &stubModel{price: 1}})
	if _, err := inv.Invoke(nil, SelectRandomForest); !errors.Is(err, ErrModelNotLoaded) {
		t.Fatalf("expected ErrModelNotLoaded, got %v", err)
	}
}
