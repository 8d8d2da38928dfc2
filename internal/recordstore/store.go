package recordstore

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	defaultAPIURL = "https://api.recordstore.local"
	userAgent     = "jastley/resume-ranker"
	// Max value for list requests per page.
	perPage = "100"

	candidatesPath = "/candidates"
)

type Client struct {
	// ctx used only for http requests right now
	ctx        context.Context
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

func New(ctx context.Context, logger *zap.Logger, token string) *Client {
	return &Client{
		ctx:    ctx,
		token:  token,
		APIURL: defaultAPIURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:    logger,
		UserAgent: userAgent,
	}
}

// ListCandidates returns the candidate records owned by the authenticated
// principal, across all result pages.
func (c *Client) ListCandidates(params *ListParams) (*Candidates, error) {
	return c.listCandidates(params)
}

// GetCandidate fetches a single candidate record by id.
func (c *Client) GetCandidate(id string) (*Candidate, error) {
	if id == "" {
		return nil, fmt.Errorf("candidate id is required")
	}

	apiURL := fmt.Sprintf("%s%s/%s", c.APIURL, candidatesPath, id)

	var candidate *Candidate
	if err := c.getJSON(apiURL, nil, &candidate); err != nil {
		return nil, err
	}

	return candidate, nil
}

// UpdateCandidate patches only the provided fields of a candidate record.
func (c *Client) UpdateCandidate(id string, fields map[string]any) error {
	if id == "" {
		return fmt.Errorf("candidate id is required")
	}
	if len(fields) == 0 {
		return nil
	}

	apiURL := fmt.Sprintf("%s%s/%s", c.APIURL, candidatesPath, id)

	c.logger.Debug("updating candidate record",
		zap.String("candidate_id", id),
		zap.Int("fields", len(fields)),
	)

	return c.patchJSON(apiURL, fields)
}
