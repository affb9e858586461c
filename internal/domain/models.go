package domain

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Course struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	Institution string    `json:"institution,omitempty"`
	Instructor  string    `json:"instructor,omitempty"`
	Semester    string    `json:"semester,omitempty"`
	StartDate   string    `json:"start_date,omitempty"`
	EndDate     string    `json:"end_date,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

type CareerPath struct {
	ID             uuid.UUID `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	SkillsRequired string    `json:"skills_required,omitempty"`
	Sector         string    `json:"sector,omitempty"`
	AverageSalary  string    `json:"average_salary,omitempty"`
	JobOutlook     string    `json:"job_outlook,omitempty"`
}

type JobListing struct {
	ID                  uuid.UUID `json:"id"`
	Title               string    `json:"title"`
	Company             string    `json:"company"`
	Location            string    `json:"location,omitempty"`
	Country             string    `json:"country,omitempty"`
	Description         string    `json:"description"`
	SalaryRange         *string   `json:"salary_range,omitempty"`
	JobType             string    `json:"job_type,omitempty"`
	Skills              string    `json:"skills,omitempty"`
	ApplicationDeadline string    `json:"application_deadline,omitempty"`
	Status              string    `json:"status,omitempty"`
	CompanyLogoURL      *string   `json:"company_logo_url,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

type LearningResource struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Provider        string    `json:"provider,omitempty"`
	ResourceType    string    `json:"resource_type,omitempty"`
	URL             string    `json:"url,omitempty"`
	ThumbnailURL    *string   `json:"thumbnail_url,omitempty"`
	Duration        string    `json:"duration,omitempty"`
	DifficultyLevel string    `json:"difficulty_level,omitempty"`
	Skills          string    `json:"skills,omitempty"`
}

// Page is one page of a DRF listing. Endpoints without pagination return a
// bare JSON array, which decodes into Results with Count set to its length.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// pageFields has Page's layout without its methods.
type pageFields[T any] Page[T]

func (p *Page[T]) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		*p = Page[T]{Count: len(items), Results: items}
		return nil
	}

	var raw pageFields[T]
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}
	*p = Page[T](raw)
	return nil
}

// APIError is the error envelope written by the gateway.
type APIError struct {
	Error struct {
		Code      string            `json:"code"`
		Message   string            `json:"message"`
		Meta      map[string]string `json:"meta,omitempty"`
		RequestID string            `json:"request_id,omitempty"`
	} `json:"error"`
}
