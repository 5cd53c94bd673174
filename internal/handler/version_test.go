package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	models "smartdoc/internal/domain/models/docsystem"
)

func TestVersionHandler_CreateListRestore(t *testing.T) {
	f := newFixture(t)
	doc := f.readyDocument(t, "First draft")
	base := "/api/documents/" + doc.ID + "/versions"

	rec := f.do(t, owner, http.MethodPost, base, map[string]string{"name": "v1", "content": doc.Content})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	v1 := decode[models.SnapshotSummary](t, rec)
	assert.Equal(t, 1, v1.Version)

	rec = f.do(t, owner, http.MethodPut, "/api/documents/"+doc.ID+"/content", map[string]string{"content": "<p>Second draft</p>"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, owner, http.MethodPost, base, map[string]string{"content": "<p>Second draft</p>"})
	require.Equal(t, http.StatusCreated, rec.Code)
	v2 := decode[models.SnapshotSummary](t, rec)
	assert.Equal(t, 2, v2.Version)
	assert.Contains(t, v2.Name, "Auto Draft - ")

	rec = f.do(t, owner, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]models.SnapshotSummary](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, v2.ID, list[0].ID, "newest first")

	rec = f.do(t, owner, http.MethodGet, "/api/versions/"+v1.ID+"/content", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, doc.Content, decode[map[string]string](t, rec)["content"])

	rec = f.do(t, owner, http.MethodPost, base+"/"+v1.ID+"/restore", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, doc.Content, decode[models.Document](t, rec).Content)
}

func TestVersionHandler_Errors(t *testing.T) {
	f := newFixture(t)
	doc := f.readyDocument(t, "Text")
	other := f.readyDocument(t, "Other")
	base := "/api/documents/" + doc.ID + "/versions"

	rec := f.do(t, owner, http.MethodPost, "/api/documents/"+other.ID+"/versions", map[string]string{"name": "theirs", "content": other.Content})
	require.Equal(t, http.StatusCreated, rec.Code)
	otherSnap := decode[models.SnapshotSummary](t, rec)

	tests := []struct {
		name       string
		userID     string
		method     string
		path       string
		body       interface{}
		wantStatus int
	}{
		{"list as stranger", stranger, http.MethodGet, base, nil, http.StatusForbidden},
		{"malformed content", owner, http.MethodPost, base, map[string]string{"content": `{"type":"doc","content":[`}, http.StatusUnprocessableEntity},
		{"content as stranger", stranger, http.MethodGet, "/api/versions/" + otherSnap.ID + "/content", nil, http.StatusForbidden},
		{"missing snapshot", owner, http.MethodGet, "/api/versions/missing/content", nil, http.StatusNotFound},
		{"restore snapshot of another document", owner, http.MethodPost, base + "/" + otherSnap.ID + "/restore", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.userID, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}
