package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pharmetric/fieldops-api/internal/dto"
	"github.com/pharmetric/fieldops-api/internal/models"
	appErrors "github.com/pharmetric/fieldops-api/pkg/errors"
)

type suggestionClientReader interface {
	FindByID(ctx context.Context, id string) (*models.Client, error)
}

type suggestionTypeReader interface {
	FindByID(ctx context.Context, id string) (*models.InterventionType, error)
}

// SuggestionService proposes comment templates for a client/type pair.
// The output is a deterministic function of the resolved names, so the
// same pair always yields the same suggestions.
type SuggestionService struct {
	clients suggestionClientReader
	types   suggestionTypeReader
	logger  *zap.Logger
	enabled bool
}

// NewSuggestionService constructs a SuggestionService.
func NewSuggestionService(clients suggestionClientReader, types suggestionTypeReader, enabled bool, logger *zap.Logger) *SuggestionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SuggestionService{clients: clients, types: types, enabled: enabled, logger: logger}
}

// ForIntervention resolves the client and type and returns the comment
// templates for the pair.
func (s *SuggestionService) ForIntervention(ctx context.Context, clientID, typeID string) (*dto.SuggestionResponse, error) {
	if !s.enabled {
		return &dto.SuggestionResponse{ClientID: clientID, TypeID: typeID, Suggestions: []string{}}, nil
	}
	if clientID == "" || typeID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "client_id and type_id are required")
	}

	client, err := s.clients.FindByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "client not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch client")
	}

	interventionType, err := s.types.FindByID(ctx, typeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "intervention type not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch intervention type")
	}

	return &dto.SuggestionResponse{
		ClientID:    clientID,
		TypeID:      typeID,
		Suggestions: commentTemplates(client.Name, interventionType.Name),
	}, nil
}

// commentTemplates builds the fixed suggestion set keyed on the
// resolved client and type names.
func commentTemplates(clientName, typeName string) []string {
	return []string{
		fmt.Sprintf("Vérifier l'état du système %s chez %s", strings.ToLower(typeName), clientName),
		"Contrôler les dernières mises à jour effectuées",
		"Examiner les logs d'erreur récents",
		"Tester la connectivité réseau et les performances",
	}
}
