package k8s

import (
	"fmt"
	"log/slog"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// Client wraps the Kubernetes clientset
type Client struct {
	clientset kubernetes.Interface
}

// NewClient connects to a cluster. An explicit kubeconfig path wins;
// otherwise the in-cluster service account is tried before the standard
// loading rules ($KUBECONFIG, then ~/.kube/config).
func NewClient(kubeconfig string) (*Client, error) {
	cfg, origin, err := restConfig(kubeconfig)
	if err != nil {
		return nil, err
	}

	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes client: %w", err)
	}
	slog.Debug("kubernetes client ready",
		slog.String("host", cfg.Host),
		slog.String("config", origin),
	)
	return &Client{clientset: clientset}, nil
}

func restConfig(kubeconfig string) (*rest.Config, string, error) {
	if kubeconfig == "" {
		if cfg, err := rest.InClusterConfig(); err == nil {
			return cfg, "in-cluster", nil
		}
	}

	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		rules.ExplicitPath = kubeconfig
	}
	loader := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, &clientcmd.ConfigOverrides{})
	cfg, err := loader.ClientConfig()
	if err != nil {
		if kubeconfig == "" {
			return nil, "", fmt.Errorf("failed to load kubeconfig: %w", err)
		}
		return nil, "", fmt.Errorf("failed to load kubeconfig from %s: %w", kubeconfig, err)
	}
	return cfg, "kubeconfig", nil
}

// NewClientFromInterface wraps an existing clientset, typically a fake
func NewClientFromInterface(clientset kubernetes.Interface) *Client {
	return &Client{clientset: clientset}
}

// Clientset returns the underlying clientset
func (c *Client) Clientset() kubernetes.Interface {
	return c.clientset
}
