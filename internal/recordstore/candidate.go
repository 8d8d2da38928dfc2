package recordstore

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"reflect"
	"slices"
	"strconv"

	"github.com/mitchellh/mapstructure"
)

type Candidates struct {
	Items []*Candidate
}

type Candidate struct {
	ID         string   `json:"id,omitempty"`
	Name       string   `json:"name,omitempty"`
	Email      string   `json:"email,omitempty"`
	Title      string   `json:"title,omitempty"`
	Location   string   `json:"location,omitempty"`
	Skills     []string `json:"skills,omitempty"`
	Experience string   `json:"experience,omitempty"`
	Text       string   `json:"resume_text,omitempty"`
	UpdatedAt  string   `json:"updated_at,omitempty"`
}

// ListParams narrows a candidate listing. The qparam tag names the query
// parameter when it differs from the yaml key; see buildParams.
type ListParams struct {
	Query   string   `yaml:"query"`
	IDs     []string `qparam:"id"`
	Status  string   `yaml:"status"`
	PerPage string   `yaml:"per_page" mapstructure:"per_page"`
}

func (c *Client) listCandidates(params *ListParams) (*Candidates, error) {
	var candidates []*Candidate

	if params == nil {
		params = &ListParams{}
	}

	// Set per_page max as possible. It should be faster.
	if params.PerPage == "" {
		params.PerPage = perPage
	}

	q := buildParams(params)
	apiURLList := fmt.Sprintf("%s%s", c.APIURL, candidatesPath)

	items, err := c.GetItems(apiURLList, q)
	if err != nil {
		return nil, err
	}

	cfg := &mapstructure.DecoderConfig{
		Metadata: nil,
		Result:   &candidates,
		TagName:  "json",
	}
	decoder, _ := mapstructure.NewDecoder(cfg)
	decoder.Decode(items)

	return &Candidates{
		Items: candidates,
	}, nil
}

func buildParams(params *ListParams) url.Values {
	q := url.Values{}
	fields := reflect.VisibleFields(reflect.TypeOf(*params))
	for _, field := range fields {
		// Our custom tag is using here.
		key := field.Tag.Get("qparam")
		if key == "" {
			// Failover to default tag if our tag do not exist.
			key = field.Tag.Get("yaml")
		}
		kind := field.Type.Kind()
		switch kind {
		case reflect.Slice:

			s := reflect.ValueOf(params).Elem().Field(field.Index[0]).Interface()
			switch v := s.(type) {
			case []int:
				for _, value := range v {
					q.Add(key, strconv.Itoa(value))
				}

			case []string:
				for _, value := range v {
					q.Add(key, value)
				}
			}

		default:
			value := fmt.Sprintf("%v", reflect.ValueOf(params).Elem().Field(field.Index[0]).Interface())
			if value != "" && value != "0" {
				q.Set(key, value)
			}
		}
	}

	return q
}

func (c *Candidates) Len() int {
	return len(c.Items)
}

func (c *Candidates) IDs() []string {
	ids := make([]string, 0, len(c.Items))
	for _, candidate := range c.Items {
		ids = append(ids, candidate.ID)
	}
	return ids
}

func (c *Candidates) FindByID(id string) *Candidate {
	for _, candidate := range c.Items {
		if candidate.ID == id {
			return candidate
		}
	}
	return nil
}

// FilterByIDs keeps only candidates whose id is in the provided set,
// preserving the original order. An empty set keeps everything.
func (c *Candidates) FilterByIDs(ids []string) *Candidates {
	if len(ids) == 0 {
		return c
	}

	filtered := make([]*Candidate, 0, len(ids))
	for _, candidate := range c.Items {
		if slices.Contains(ids, candidate.ID) {
			filtered = append(filtered, candidate)
		}
	}

	return &Candidates{Items: filtered}
}

func (c *Candidates) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "candidates_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return "", err
	}
	return file.Name(), nil
}

// ChangedFields compares freshly extracted values against the stored record
// and returns only the fields that actually changed. Empty extracted values
// never overwrite stored ones.
func (c *Candidate) ChangedFields(name, email, experience string, skills []string) map[string]any {
	changed := make(map[string]any)

	if name != "" && name != c.Name {
		changed["name"] = name
	}
	if email != "" && email != c.Email {
		changed["email"] = email
	}
	if experience != "" && experience != c.Experience {
		changed["experience"] = experience
	}
	if len(skills) > 0 && !slices.Equal(skills, c.Skills) {
		changed["skills"] = skills
	}

	if len(changed) == 0 {
		return nil
	}
	return changed
}
