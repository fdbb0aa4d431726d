package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facilityops/key-custody/internal/custody"
	"github.com/facilityops/key-custody/internal/model"
	"github.com/facilityops/key-custody/internal/repository"
)

type fakeSpaceLookup struct {
	spaces map[int64]model.Space
}

func (f *fakeSpaceLookup) GetByKey(_ context.Context, keyNumber int64) (model.Space, error) {
	s, ok := f.spaces[keyNumber]
	if !ok {
		return model.Space{}, repository.ErrSpaceNotFound
	}
	return s, nil
}

type fakePersonLookup struct {
	people map[string]model.Person
}

func (f *fakePersonLookup) GetByID(_ context.Context, id string) (model.Person, error) {
	p, ok := f.people[id]
	if !ok {
		return model.Person{}, repository.ErrPersonNotFound
	}
	return p, nil
}

func (f *fakePersonLookup) List(_ context.Context, _ bool) ([]model.Person, error) {
	out := make([]model.Person, 0, len(f.people))
	for _, p := range f.people {
		out = append(out, p)
	}
	return out, nil
}

type fakeOpenLedger struct {
	open map[int64]model.Transaction
}

func (f *fakeOpenLedger) OpenByKey(_ context.Context, keyNumber int64) (model.Transaction, error) {
	entry, ok := f.open[keyNumber]
	if !ok {
		return model.Transaction{}, custody.ErrNoOpenCheckout
	}
	return entry, nil
}

func deeplinkGet(t *testing.T, h *OperationHandler, target string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.Deeplink(e.NewContext(req, rec)))
	return rec
}

func TestDeeplinkPrefillsPerson(t *testing.T) {
	checkout := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)
	h := &OperationHandler{
		SpaceRepo: &fakeSpaceLookup{spaces: map[int64]model.Space{
			101: {KeyNumber: 101, DisplayName: "Physics Lab", Category: model.CategoryLaboratory, Active: true},
		}},
		PersonRepo: &fakePersonLookup{people: map[string]model.Person{
			"p-1": {ID: "p-1", Name: "Ada Moreira", Active: true},
		}},
		TxRepo: &fakeOpenLedger{open: map[int64]model.Transaction{
			101: {ID: "tx-1", KeyNumber: 101, HolderName: "Ada Moreira", CheckoutTime: checkout, Status: "OPEN"},
		}},
	}

	rec := deeplinkGet(t, h, "/v1/deeplink?key=101&action=checkin&person_id=p-1")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		KeyNumber int64  `json:"key_number"`
		Action    string `json:"action"`
		PersonID  string `json:"person_id"`
		Space     struct {
			DisplayName string `json:"display_name"`
		} `json:"space"`
		Person *struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"person"`
		Open *struct {
			ID string `json:"id"`
		} `json:"open_transaction"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(101), resp.KeyNumber)
	assert.Equal(t, "checkin", resp.Action)
	assert.Equal(t, "Physics Lab", resp.Space.DisplayName)
	assert.Equal(t, "p-1", resp.PersonID)
	require.NotNil(t, resp.Person)
	assert.Equal(t, "Ada Moreira", resp.Person.Name)
	require.NotNil(t, resp.Open)
	assert.Equal(t, "tx-1", resp.Open.ID)
}

func TestDeeplinkUnknownPersonStillResolves(t *testing.T) {
	h := &OperationHandler{
		SpaceRepo: &fakeSpaceLookup{spaces: map[int64]model.Space{
			7: {KeyNumber: 7, DisplayName: "Room 7", Category: model.CategoryRoom, Active: true},
		}},
		PersonRepo: &fakePersonLookup{},
		TxRepo:     &fakeOpenLedger{},
	}

	rec := deeplinkGet(t, h, "/v1/deeplink?key=7&person_id=gone")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp, "person_id")
	assert.NotContains(t, resp, "person")
	assert.NotContains(t, resp, "open_transaction")
}

func TestDeeplinkAvailableKeyOmitsTransaction(t *testing.T) {
	h := &OperationHandler{
		SpaceRepo: &fakeSpaceLookup{spaces: map[int64]model.Space{
			7: {KeyNumber: 7, DisplayName: "Room 7", Category: model.CategoryRoom, Active: true},
		}},
		PersonRepo: &fakePersonLookup{},
		TxRepo:     &fakeOpenLedger{},
	}

	rec := deeplinkGet(t, h, "/v1/deeplink?key=7")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotContains(t, resp, "person_id")
	assert.NotContains(t, resp, "open_transaction")
}

func TestDeeplinkUnknownSpace(t *testing.T) {
	h := &OperationHandler{
		SpaceRepo:  &fakeSpaceLookup{},
		PersonRepo: &fakePersonLookup{},
		TxRepo:     &fakeOpenLedger{},
	}

	rec := deeplinkGet(t, h, "/v1/deeplink?key=404")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeeplinkRejectsBadKey(t *testing.T) {
	h := &OperationHandler{
		SpaceRepo:  &fakeSpaceLookup{},
		PersonRepo: &fakePersonLookup{},
		TxRepo:     &fakeOpenLedger{},
	}

	rec := deeplinkGet(t, h, "/v1/deeplink?key=zero")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
