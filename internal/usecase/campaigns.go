// Package usecase contains application business logic services.
package usecase

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/domain"
	"github.com/fairyhunter13/call-campaign-orchestrator/pkg/phonenum"
)

// CampaignService manages campaigns and their phone number lists.
type CampaignService struct {
	Campaigns domain.CampaignRepository
	Numbers   domain.PhoneNumberRepository
}

// NewCampaignService constructs a CampaignService with its dependencies.
func NewCampaignService(c domain.CampaignRepository, n domain.PhoneNumberRepository) CampaignService {
	return CampaignService{Campaigns: c, Numbers: n}
}

// Create validates and persists a new campaign. Campaigns start active.
func (s CampaignService) Create(ctx domain.Context, name, description string) (domain.Campaign, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Campaign{}, fmt.Errorf("%w: campaign name is required", domain.ErrInvalidArgument)
	}
	now := time.Now().UTC()
	c := domain.Campaign{Name: name, Description: description, Active: true, CreatedAt: now, UpdatedAt: now}
	id, err := s.Campaigns.Create(ctx, c)
	if err != nil {
		return domain.Campaign{}, fmt.Errorf("op=usecase.CampaignCreate: %w", err)
	}
	c.ID = id
	return c, nil
}

// Get returns one campaign by id.
func (s CampaignService) Get(ctx domain.Context, id int64) (domain.Campaign, error) {
	c, err := s.Campaigns.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Campaign{}, fmt.Errorf("%w: campaign %d", domain.ErrNotFound, id)
		}
		return domain.Campaign{}, fmt.Errorf("op=usecase.CampaignGet: %w", err)
	}
	return c, nil
}

// List returns all campaigns, newest first.
func (s CampaignService) List(ctx domain.Context) ([]domain.Campaign, error) {
	out, err := s.Campaigns.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("op=usecase.CampaignList: %w", err)
	}
	return out, nil
}

// ListNumbers returns the active numbers of one campaign, for the detail
// view.
func (s CampaignService) ListNumbers(ctx domain.Context, campaignID int64) ([]domain.PhoneNumber, error) {
	out, err := s.Numbers.ListActive(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("op=usecase.ListNumbers: %w", err)
	}
	return out, nil
}

// AddNumbersResult reports the outcome of a phone number import.
type AddNumbersResult struct {
	CreatedCount   int
	CreatedNumbers []string
	Errors         []string
}

// AddNumbers normalizes, validates and stores a batch of numbers for a
// campaign. Invalid entries and in-batch duplicates are reported per number
// without failing the batch; numbers already present on the campaign are
// skipped by the repository and surface as "already exists".
func (s CampaignService) AddNumbers(ctx domain.Context, campaignID int64, raw []string) (AddNumbersResult, error) {
	if _, err := s.Campaigns.Get(ctx, campaignID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return AddNumbersResult{}, fmt.Errorf("%w: campaign %d", domain.ErrNotFound, campaignID)
		}
		return AddNumbersResult{}, fmt.Errorf("op=usecase.AddNumbers: %w", err)
	}
	if len(raw) == 0 {
		return AddNumbersResult{}, fmt.Errorf("%w: phone_numbers must not be empty", domain.ErrInvalidArgument)
	}

	var res AddNumbersResult
	seen := make(map[string]bool, len(raw))
	valid := make([]string, 0, len(raw))
	for _, r := range raw {
		if !phonenum.Valid(r) {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: invalid phone number format", r))
			continue
		}
		n := phonenum.Normalize(r)
		if seen[n] {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: duplicate in request", n))
			continue
		}
		seen[n] = true
		valid = append(valid, n)
	}
	if len(valid) == 0 {
		return res, nil
	}

	created, err := s.Numbers.CreateBatch(ctx, campaignID, valid)
	if err != nil {
		return AddNumbersResult{}, fmt.Errorf("op=usecase.AddNumbers: %w", err)
	}
	createdSet := make(map[string]bool, len(created))
	for _, p := range created {
		createdSet[p.Number] = true
		res.CreatedNumbers = append(res.CreatedNumbers, p.Number)
	}
	res.CreatedCount = len(created)
	for _, n := range valid {
		if !createdSet[n] {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: already exists", n))
		}
	}
	return res, nil
}
