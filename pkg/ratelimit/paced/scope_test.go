package paced

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/vnykmshr/pacer/internal/testutil"
	pferrors "github.com/vnykmshr/pacer/pkg/common/errors"
)

func TestRunStopsOnReturn(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	l := MustNew(2, 0)
	var inside State

	err := Run(ctx, l, func(l Limiter) error {
		inside = l.State()
		v, err := Do(ctx, l, func(ctx context.Context) (int, error) { return 21 * 2, nil })
		testutil.AssertEqual(t, v, 42)
		return err
	})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, inside, StateActive)
	testutil.AssertEqual(t, l.State(), StateStopped)
}

func TestRunStopsOnError(t *testing.T) {
	errScope := errors.New("scope failed")
	l := MustNew(1, time.Hour)

	err := Run(context.Background(), l, func(l Limiter) error {
		return errScope
	})
	if err != errScope {
		t.Fatalf("got %v, want scope error", err)
	}

	_, err = l.Submit(func(ctx context.Context) (any, error) { return nil, nil })
	if !errors.Is(err, pferrors.ErrNotActive) {
		t.Errorf("got %v, want ErrNotActive", err)
	}
}

func TestRunStopsOnPanic(t *testing.T) {
	l := MustNew(1, 0)

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Error("expected panic to propagate")
			}
		}()
		_ = Run(context.Background(), l, func(l Limiter) error {
			panic("caller bug")
		})
	}()

	testutil.AssertEqual(t, l.State(), StateStopped)
}

func TestRunStartFailure(t *testing.T) {
	l := MustNew(1, 0)
	<-l.Stop()

	called := false
	err := Run(context.Background(), l, func(Limiter) error {
		called = true
		return nil
	})
	if !errors.Is(err, pferrors.ErrAlreadyStarted) {
		t.Errorf("got %v, want ErrAlreadyStarted", err)
	}
	testutil.AssertEqual(t, called, false)
}

func TestRunWithConfigValidation(t *testing.T) {
	err := RunWithConfig(context.Background(), Config{Workers: 0}, func(Limiter) error { return nil })
	if !pferrors.IsValidationError(err) {
		t.Errorf("got %v, want ValidationError", err)
	}
}

func TestWrap(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	err := RunWithConfig(ctx, Config{Workers: 1}, func(l Limiter) error {
		format := Wrap(l, func(ctx context.Context) (string, error) {
			return strconv.Itoa(7), nil
		})

		s, err := format(ctx)
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, s, "7")

		errBad := errors.New("bad input")
		fail := Wrap(l, func(ctx context.Context) (string, error) {
			return "", errBad
		})
		_, err = fail(ctx)
		if err != errBad {
			t.Errorf("got %v, want the operation's error", err)
		}
		return nil
	})
	testutil.AssertNoError(t, err)
}

func TestDoNotActive(t *testing.T) {
	l := MustNew(1, 0)

	v, err := Do(context.Background(), l, func(ctx context.Context) (int, error) { return 1, nil })
	if !errors.Is(err, pferrors.ErrNotActive) {
		t.Errorf("got %v, want ErrNotActive", err)
	}
	testutil.AssertEqual(t, v, 0)
}
