package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"operaflow/internal/model"
)

func TestUpdateDatesSendsPayloadAndToken(t *testing.T) {
	var got model.DateUpdate
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/tasks/1/dates", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":1,"libelle":"A","date_debut_plan":"2024-01-01","date_fin_plan":"2024-01-10","avancement":0}}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL+"/", WithToken("secret"))
	require.NoError(t, err)

	task, err := c.UpdateDates(context.Background(), model.DateUpdate{TaskID: 1, Start: "2024-01-01", End: "2024-01-10"})
	require.NoError(t, err)
	assert.Equal(t, model.DateUpdate{TaskID: 1, Start: "2024-01-01", End: "2024-01-10"}, got)
	assert.Equal(t, "2024-01-10", task.End)
}

func TestErrorsBecomeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"end date precedes start date"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)
	_, err = c.UpdateProgress(context.Background(), model.ProgressUpdate{TaskID: 3, Progress: 10})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "end date precedes start date", apiErr.Message)
}

func TestListTasksAndBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tasks":
			assert.Equal(t, "7", r.URL.Query().Get("affaire_id"))
			assert.Equal(t, "en_cours", r.URL.Query().Get("statut"))
			_, _ = w.Write([]byte(`{"data":[{"id":1,"libelle":"A"},{"id":2,"libelle":"B"}]}`))
		case "/api/tasks/dates/batch":
			var body struct {
				Items []model.DateUpdate `json:"items"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Len(t, body.Items, 2)
			_, _ = w.Write([]byte(`{"data":[{"task_id":1,"ok":true},{"task_id":2,"ok":false,"error":"not found"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)
	id := int64(7)
	tasks, err := c.ListTasks(context.Background(), TaskQuery{AffaireID: &id, Status: model.StatusInProgress})
	require.NoError(t, err)
	assert.Len(t, tasks, 2)

	results, err := c.BatchUpdateDates(context.Background(), []model.DateUpdate{{TaskID: 1}, {TaskID: 2}})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].OK)
	assert.Equal(t, "not found", results[1].Error)
}

func TestNewRejectsEmptyURL(t *testing.T) {
	_, err := New("  ")
	assert.Error(t, err)
}
