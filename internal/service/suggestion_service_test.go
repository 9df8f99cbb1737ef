package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pharmetric/fieldops-api/internal/models"
	appErrors "github.com/pharmetric/fieldops-api/pkg/errors"
)

func newSuggestionFixture(enabled bool) (*SuggestionService, string, string) {
	clientID := "c1"
	typeID := "t1"
	clients := &mockClientReader{clients: map[string]*models.Client{
		clientID: {ID: clientID, Name: "Pharmacie Lafayette"},
	}}
	types := &mockTypeReader{types: map[string]*models.InterventionType{
		typeID: {ID: typeID, Name: "Maintenance", Active: true},
	}}
	return NewSuggestionService(clients, types, enabled, zap.NewNop()), clientID, typeID
}

func TestSuggestionServiceReturnsTemplates(t *testing.T) {
	svc, clientID, typeID := newSuggestionFixture(true)

	resp, err := svc.ForIntervention(context.Background(), clientID, typeID)
	require.NoError(t, err)
	require.Len(t, resp.Suggestions, 4)
	assert.Equal(t, "Vérifier l'état du système maintenance chez Pharmacie Lafayette", resp.Suggestions[0])
}

func TestSuggestionServiceIsDeterministic(t *testing.T) {
	svc, clientID, typeID := newSuggestionFixture(true)

	first, err := svc.ForIntervention(context.Background(), clientID, typeID)
	require.NoError(t, err)
	second, err := svc.ForIntervention(context.Background(), clientID, typeID)
	require.NoError(t, err)
	assert.Equal(t, first.Suggestions, second.Suggestions)
}

func TestSuggestionServiceRequiresBothIDs(t *testing.T) {
	svc, clientID, _ := newSuggestionFixture(true)

	_, err := svc.ForIntervention(context.Background(), clientID, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSuggestionServiceUnknownClient(t *testing.T) {
	svc, _, typeID := newSuggestionFixture(true)

	_, err := svc.ForIntervention(context.Background(), "missing", typeID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSuggestionServiceDisabledReturnsEmpty(t *testing.T) {
	svc, clientID, typeID := newSuggestionFixture(false)

	resp, err := svc.ForIntervention(context.Background(), clientID, typeID)
	require.NoError(t, err)
	assert.Empty(t, resp.Suggestions)
}
