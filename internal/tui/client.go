package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tunewise/tunewise/internal/controlplane"
	"github.com/tunewise/tunewise/internal/models"
)

// DefaultClientTimeout is the default timeout for API requests.
const DefaultClientTimeout = 10 * time.Second

// Client wraps HTTP calls to the daemon API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client with timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultClientTimeout,
		},
	}
}

// Status fetches the daemon status report.
func (c *Client) Status() (*controlplane.StatusReport, error) {
	var report controlplane.StatusReport
	if err := c.get("/status", &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Agents fetches the status of every agent.
func (c *Client) Agents() ([]models.AgentStatus, error) {
	var statuses []models.AgentStatus
	if err := c.get("/agents", &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

// Recommendations fetches the latest reasoning round output.
func (c *Client) Recommendations() ([]models.AgentRecommendation, error) {
	var recs []models.AgentRecommendation
	if err := c.get("/recommendations", &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// Results fetches recent apply and revert results.
func (c *Client) Results(limit int) ([]models.ConfigurationResult, error) {
	var results []models.ConfigurationResult
	if err := c.get(fmt.Sprintf("/results?limit=%d", limit), &results); err != nil {
		return nil, err
	}
	return results, nil
}

// Recipes fetches the recipe catalog.
func (c *Client) Recipes() ([]models.AutomationRecipe, error) {
	var recipes []models.AutomationRecipe
	if err := c.get("/recipes", &recipes); err != nil {
		return nil, err
	}
	return recipes, nil
}

// ApplyRecipe applies a recipe by name.
func (c *Client) ApplyRecipe(name string) (*models.ConfigurationResult, error) {
	var result models.ConfigurationResult
	if err := c.post("/recipes/"+name+"/apply", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RevertRecipe reverts a recipe by name.
func (c *Client) RevertRecipe(name string) (*models.ConfigurationResult, error) {
	var result models.ConfigurationResult
	if err := c.post("/recipes/"+name+"/revert", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SubmitFeedback sends a feedback record for an agent action.
func (c *Client) SubmitFeedback(agentID, action, kind string, improvement float64, comment string) error {
	body := map[string]interface{}{
		"agent_id":             agentID,
		"action":               action,
		"kind":                 kind,
		"measured_improvement": improvement,
		"comment":              comment,
	}
	return c.post("/feedback", body, nil)
}

// CheckHealth checks if the daemon is reachable.
func (c *Client) CheckHealth() bool {
	resp, err := c.httpClient.Get(c.baseURL + "/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *Client) get(path string, out interface{}) error {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error: %s", bytes.TrimSpace(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) post(path string, data, out interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Post(c.baseURL+path, "application/json", bytes.NewReader(jsonData))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("API error: %s", bytes.TrimSpace(body))
	}
	if out != nil {
		return json.Unmarshal(body, out)
	}
	return nil
}
