package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ruaancorrea/helpdesk-backend/internal/docstore"
	"github.com/ruaancorrea/helpdesk-backend/internal/models"
	"github.com/ruaancorrea/helpdesk-backend/internal/utils"
)

// UserService owns user persistence. Passwords are hashed at this boundary;
// plaintext never reaches the store and hashes never leave it.
type UserService struct {
	store docstore.Store
	log   zerolog.Logger
}

func NewUserService(store docstore.Store, log zerolog.Logger) *UserService {
	return &UserService{store: store, log: log.With().Str("component", "users").Logger()}
}

type UserInput struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	Department string `json:"department"`
	Position   string `json:"position"`
	Phone      string `json:"phone"`
}

func normalizeRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "admin":
		return "admin"
	case "technician":
		return "technician"
	default:
		return "user"
	}
}

func (s *UserService) Create(ctx context.Context, in UserInput) (*models.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if in.Email == "" || in.Name == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: email, name and password are required", ErrValidation)
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	su := storedUser{
		User: models.User{
			Email:      in.Email,
			Name:       in.Name,
			Role:       normalizeRole(in.Role),
			Department: strings.TrimSpace(in.Department),
			Position:   strings.TrimSpace(in.Position),
			Phone:      strings.TrimSpace(in.Phone),
			CreatedAt:  nowStamp(),
		},
		PasswordHash: hash,
	}
	doc, err := s.store.Add(ctx, collUsers, su)
	if err != nil {
		return nil, err
	}
	su.User.ID = doc.ID
	return &su.User, nil
}

// List returns public profiles only.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	docs, err := s.store.Query(ctx, collUsers, nil)
	if err != nil {
		return nil, err
	}
	out := make([]models.User, 0, len(docs))
	for _, doc := range docs {
		var su storedUser
		if err := doc.Decode(&su); err != nil {
			return nil, err
		}
		out = append(out, su.User)
	}
	return out, nil
}

// Update merges the patch. An incoming password is replaced by its hash;
// a caller can never write passwordHash directly. The returned map is the
// patch as applied, safe to echo to the client.
func (s *UserService) Update(ctx context.Context, id string, patch map[string]any) (map[string]any, error) {
	if patch == nil {
		patch = map[string]any{}
	}
	delete(patch, "id")
	delete(patch, "createdAt")
	delete(patch, "passwordHash")
	if pw, ok := patch["password"].(string); ok {
		delete(patch, "password")
		if pw != "" {
			hash, err := utils.HashPassword(pw)
			if err != nil {
				return nil, err
			}
			patch["passwordHash"] = hash
		}
	}
	if role, ok := patch["role"].(string); ok {
		patch["role"] = normalizeRole(role)
	}
	if err := s.store.Update(ctx, collUsers, id, patch); err != nil {
		return nil, err
	}
	echo := make(map[string]any, len(patch))
	for k, v := range patch {
		if k == "passwordHash" {
			continue
		}
		echo[k] = v
	}
	return echo, nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, collUsers, id)
}

// BulkImport loads spreadsheet rows. Rows missing Nome, Email or Senha are
// skipped; the rest go in as a single atomic batch.
func (s *UserService) BulkImport(ctx context.Context, rows []models.BulkUserRow) (int, error) {
	if len(rows) == 0 {
		return 0, fmt.Errorf("%w: empty user list", ErrValidation)
	}
	var docs []any
	for _, row := range rows {
		if row.Nome == "" || row.Email == "" || row.Senha == "" {
			s.log.Warn().Str("email", row.Email).Msg("bulk row skipped, missing required column")
			continue
		}
		hash, err := utils.HashPassword(row.Senha)
		if err != nil {
			return 0, err
		}
		role := normalizeRole(row.Papel)
		su := storedUser{
			User: models.User{
				Email:      row.Email,
				Name:       row.Nome,
				Role:       role,
				Department: defaultStr(row.Departamento, "Não especificado"),
				Position:   defaultStr(row.Cargo, defaultPosition(role)),
				Phone:      row.Telefone,
				CreatedAt:  nowStamp(),
			},
			PasswordHash: hash,
		}
		docs = append(docs, su)
	}
	if len(docs) == 0 {
		return 0, fmt.Errorf("%w: no valid user rows", ErrValidation)
	}
	return s.store.AddBatch(ctx, collUsers, docs)
}

func defaultStr(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func defaultPosition(role string) string {
	switch role {
	case "admin":
		return "Administrador"
	case "technician":
		return "Técnico"
	default:
		return "Usuário"
	}
}
