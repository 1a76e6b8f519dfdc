package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innovategy/innosystem/internal/data"
)

func Test_ProcessorFor(t *testing.T) {
	t.Run("webhook processor type gets a WebhookProcessor", func(t *testing.T) {
		p := ProcessorFor(data.ProcessorTypeWebhook, nil)
		_, ok := p.(*WebhookProcessor)
		assert.True(t, ok)
	})

	for _, pt := range []data.ProcessorType{data.ProcessorTypeSync, data.ProcessorTypeAsync, data.ProcessorTypeExternalAPI, data.ProcessorTypeBatch} {
		t.Run(string(pt)+" gets a NoopProcessor", func(t *testing.T) {
			p := ProcessorFor(pt, nil)
			_, ok := p.(NoopProcessor)
			assert.True(t, ok)
		})
	}
}

func Test_NoopProcessor_EchoesInput(t *testing.T) {
	job := &data.Job{InputData: json.RawMessage(`{"a":1}`)}
	out, err := NoopProcessor{}.Process(context.Background(), job, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(out))
}

func Test_WebhookProcessor_Process(t *testing.T) {
	t.Run("2xx response becomes the job output", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"result":"ok"}`))
		}))
		defer srv.Close()

		proc := &WebhookProcessor{httpClient: srv.Client()}
		job := &data.Job{InputData: json.RawMessage(`{"in":1}`)}
		jobType := &data.JobType{ProcessingLogicID: srv.URL}

		out, err := proc.Process(context.Background(), job, jobType)
		require.NoError(t, err)
		assert.JSONEq(t, `{"result":"ok"}`, string(out))
	})

	t.Run("4xx response is not retried and surfaces as an error", func(t *testing.T) {
		attempts := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer srv.Close()

		proc := &WebhookProcessor{httpClient: srv.Client()}
		job := &data.Job{InputData: json.RawMessage(`{}`)}
		jobType := &data.JobType{ProcessingLogicID: srv.URL}

		_, err := proc.Process(context.Background(), job, jobType)
		require.Error(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("5xx response is retried up to the attempt limit", func(t *testing.T) {
		attempts := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		proc := &WebhookProcessor{httpClient: srv.Client()}
		job := &data.Job{InputData: json.RawMessage(`{}`)}
		jobType := &data.JobType{ProcessingLogicID: srv.URL}

		_, err := proc.Process(context.Background(), job, jobType)
		require.Error(t, err)
		assert.Equal(t, 3, attempts)
	})
}
