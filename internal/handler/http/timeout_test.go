package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeout_FastHandler(t *testing.T) {
	handler := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("done"))
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "done", rr.Body.String())
}

func TestTimeout_SlowHandler(t *testing.T) {
	proceed := make(chan struct{})
	lateWrite := make(chan error, 1)
	handler := Timeout(20 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		<-proceed
		_, err := w.Write([]byte("too late"))
		lateWrite <- err
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	close(proceed)

	assert.Equal(t, http.StatusGatewayTimeout, rr.Code)
	assert.JSONEq(t, `{"error":"request timeout"}`, rr.Body.String())

	select {
	case err := <-lateWrite:
		assert.ErrorIs(t, err, http.ErrHandlerTimeout)
	case <-time.After(time.Second):
		t.Fatal("handler did not observe cancellation")
	}
}

func TestTimeout_PropagatesPanic(t *testing.T) {
	handler := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	assert.PanicsWithValue(t, "boom", func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
