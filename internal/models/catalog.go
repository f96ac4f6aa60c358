package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TaskMetric names one chartable metric of a task.
type TaskMetric struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// TaskDescriptor describes one task for the results/timeline surface.
type TaskDescriptor struct {
	ID          string       `yaml:"id" json:"id"`
	Title       string       `yaml:"title" json:"title"`
	Description string       `yaml:"description" json:"description"`
	Metrics     []TaskMetric `yaml:"metrics" json:"metrics"`
}

// Catalog holds all task descriptors.
type Catalog struct {
	Tasks []TaskDescriptor `yaml:"tasks"`
}

// LoadCatalog reads and parses the tasks.yaml file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read task catalog: %w", err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task catalog YAML: %w", err)
	}

	return &catalog, nil
}

// ByID looks up a task descriptor.
func (c *Catalog) ByID(id string) (TaskDescriptor, bool) {
	for _, t := range c.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return TaskDescriptor{}, false
}

// MetricLabel returns the display label for a metric key, falling back to the
// key itself.
func (c *Catalog) MetricLabel(taskID, metricKey string) string {
	task, ok := c.ByID(taskID)
	if !ok {
		return metricKey
	}
	for _, m := range task.Metrics {
		if m.Value == metricKey {
			return m.Label
		}
	}
	return metricKey
}
