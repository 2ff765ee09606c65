package k8s

import (
	"context"
	"fmt"
	"log/slog"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/ppiankov/clusterpulse/internal/collector"
	"github.com/ppiankov/clusterpulse/internal/ingest"
	"github.com/ppiankov/clusterpulse/pkg/config"
)

// ConfigMapSource reads an upload document stored under one key of a
// ConfigMap
type ConfigMapSource struct {
	client    *Client
	limiter   *RateLimiter
	namespace string
	name      string
	key       string
}

// NewConfigMapSource creates a source for cfg's namespace, ConfigMap and key
func NewConfigMapSource(client *Client, cfg *config.Config) (*ConfigMapSource, error) {
	if client == nil {
		return nil, fmt.Errorf("kubernetes client is required")
	}
	if cfg.ConfigMapName == "" || cfg.ConfigMapKey == "" {
		return nil, fmt.Errorf("configmap name and key are required")
	}
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = metav1.NamespaceDefault
	}
	return &ConfigMapSource{
		client:    client,
		limiter:   NewRateLimiter(cfg.RateLimit),
		namespace: namespace,
		name:      cfg.ConfigMapName,
		key:       cfg.ConfigMapKey,
	}, nil
}

// Collect fetches the ConfigMap and decodes the document under the key
func (s *ConfigMapSource) Collect(ctx context.Context) ([]collector.Batch, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	cm, err := s.client.Clientset().CoreV1().ConfigMaps(s.namespace).Get(ctx, s.name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil, fmt.Errorf("configmap %s/%s not found: %w", s.namespace, s.name, err)
		}
		return nil, fmt.Errorf("failed to get configmap %s/%s: %w", s.namespace, s.name, err)
	}

	var data []byte
	if value, ok := cm.Data[s.key]; ok {
		data = []byte(value)
	} else if value, ok := cm.BinaryData[s.key]; ok {
		data = value
	} else {
		return nil, fmt.Errorf("key %q not found in configmap %s/%s", s.key, s.namespace, s.name)
	}

	name := fmt.Sprintf("configmap:%s/%s/%s", s.namespace, s.name, s.key)
	records, err := ingest.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}

	slog.Debug("configmap decoded", slog.String("source", name), slog.Int("records", len(records)))
	return []collector.Batch{{Name: name, Records: records}}, nil
}

// Close is a no-op
func (s *ConfigMapSource) Close() error {
	return nil
}

var _ collector.Collector = (*ConfigMapSource)(nil)
