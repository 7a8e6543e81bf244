package handlers

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/takato23/lookescolar-sub001/internal/testutils"
)

func tagBody(eventID, subjectID uuid.UUID, photoIDs []uuid.UUID) map[string]interface{} {
	return map[string]interface{}{
		"eventId":   eventID,
		"subjectId": subjectID,
		"photoIds":  photoIDs,
	}
}

func TestTagQREndpoint(t *testing.T) {
	srv := newTestServer(t)

	event := testutils.CreateTestEvent(t, srv.db, true)
	subject := testutils.CreateTestSubject(t, srv.db, event.ID, "Juan Pérez", nil)
	photoIDs := testutils.CreateTestPhotos(t, srv.db, event.ID, 3, true)

	t.Run("happy path", func(t *testing.T) {
		w := srv.request(t, "POST", "/qr/tag", tagBody(event.ID, subject.ID, photoIDs), "")

		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, float64(3), body["assignedCount"])
		assert.Equal(t, float64(0), body["duplicateCount"])
		assert.Equal(t, "qr", body["workflowType"])
	})

	t.Run("repeat is reported as duplicates", func(t *testing.T) {
		w := srv.request(t, "POST", "/qr/tag", tagBody(event.ID, subject.ID, photoIDs), "")

		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, float64(0), body["assignedCount"])
		assert.Equal(t, float64(3), body["duplicateCount"])
	})

	t.Run("missing fields", func(t *testing.T) {
		w := srv.request(t, "POST", "/qr/tag", map[string]interface{}{
			"eventId": event.ID,
		}, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("batch over the scanner ceiling", func(t *testing.T) {
		ids := make([]uuid.UUID, 51)
		for i := range ids {
			ids[i] = uuid.New()
		}
		w := srv.request(t, "POST", "/qr/tag", tagBody(event.ID, subject.ID, ids), "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "Photo batch exceeds the allowed size", body["error"])
		assert.Equal(t, float64(50), body["limit"])
	})

	t.Run("unapproved photos rejected with count", func(t *testing.T) {
		unapproved := testutils.CreateTestPhotos(t, srv.db, event.ID, 2, false)
		w := srv.request(t, "POST", "/qr/tag", tagBody(event.ID, subject.ID, unapproved), "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "Batch contains unapproved photos", body["error"])
		assert.Equal(t, float64(2), body["unapproved"])
	})

	t.Run("photos from another event", func(t *testing.T) {
		other := testutils.CreateTestEvent(t, srv.db, true)
		foreign := testutils.CreateTestPhotos(t, srv.db, other.ID, 2, true)
		w := srv.request(t, "POST", "/qr/tag", tagBody(event.ID, subject.ID, foreign), "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "Photos do not belong to the event", body["error"])
	})

	t.Run("subject from another event", func(t *testing.T) {
		other := testutils.CreateTestEvent(t, srv.db, true)
		otherPhotos := testutils.CreateTestPhotos(t, srv.db, other.ID, 1, true)
		w := srv.request(t, "POST", "/qr/tag", tagBody(other.ID, subject.ID, otherPhotos), "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Subject does not belong to the event", decodeBody(t, w)["error"])
	})
}

func TestTagAdminEndpoint(t *testing.T) {
	srv := newTestServer(t)

	event := testutils.CreateTestEvent(t, srv.db, true)
	subject := testutils.CreateTestSubject(t, srv.db, event.ID, "Juan Pérez", nil)

	t.Run("requires staff auth", func(t *testing.T) {
		photoIDs := testutils.CreateTestPhotos(t, srv.db, event.ID, 1, true)
		w := srv.request(t, "POST", "/admin/tag", tagBody(event.ID, subject.ID, photoIDs), "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("staff ceiling admits larger batches", func(t *testing.T) {
		photoIDs := testutils.CreateTestPhotos(t, srv.db, event.ID, 60, true)
		w := srv.request(t, "POST", "/admin/tag", tagBody(event.ID, subject.ID, photoIDs), testMasterToken)

		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, float64(60), body["assignedCount"])
		assert.Equal(t, "admin", body["workflowType"])
	})
}
