package k8s

import (
	"context"
	"errors"
	"strings"
	"testing"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/ppiankov/clusterpulse/internal/ingest"
	"github.com/ppiankov/clusterpulse/pkg/config"
)

const document = `[{"ClusterName": "etl", "ClusterId": "j-1", "State": "RUNNING", "CreationDateTime": "2026-03-01T10:00:00Z"}]`

func configMap(namespace, name string, data map[string]string, binary map[string][]byte) *corev1.ConfigMap {
	return &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
		Data:       data,
		BinaryData: binary,
	}
}

func sourceFor(t *testing.T, cfg *config.Config, objects ...*corev1.ConfigMap) *ConfigMapSource {
	t.Helper()
	clientset := fake.NewSimpleClientset()
	for _, obj := range objects {
		if _, err := clientset.CoreV1().ConfigMaps(obj.Namespace).Create(context.Background(), obj, metav1.CreateOptions{}); err != nil {
			t.Fatalf("failed to seed configmap: %v", err)
		}
	}
	src, err := NewConfigMapSource(NewClientFromInterface(clientset), cfg)
	if err != nil {
		t.Fatalf("NewConfigMapSource failed: %v", err)
	}
	return src
}

func TestConfigMapSourceCollect(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Namespace = "analytics"
	src := sourceFor(t, cfg, configMap("analytics", cfg.ConfigMapName, map[string]string{cfg.ConfigMapKey: document}, nil))

	batches, err := src.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(batches) != 1 || len(batches[0].Records) != 1 {
		t.Fatalf("unexpected batches: %+v", batches)
	}
	if batches[0].Name != "configmap:analytics/cluster-records/records.json" {
		t.Fatalf("unexpected batch name: %s", batches[0].Name)
	}
}

func TestConfigMapSourceBinaryData(t *testing.T) {
	cfg := config.DefaultConfig()
	src := sourceFor(t, cfg, configMap("default", cfg.ConfigMapName, nil, map[string][]byte{cfg.ConfigMapKey: []byte(document)}))

	batches, err := src.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(batches[0].Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(batches[0].Records))
	}
}

func TestConfigMapSourceErrors(t *testing.T) {
	cfg := config.DefaultConfig()

	cases := []struct {
		name    string
		objects []*corev1.ConfigMap
		wantMsg string
		wantErr error
	}{
		{name: "missing_configmap", wantMsg: "not found"},
		{
			name:    "missing_key",
			objects: []*corev1.ConfigMap{configMap("default", cfg.ConfigMapName, map[string]string{"other": document}, nil)},
			wantMsg: `key "records.json" not found`,
		},
		{
			name:    "empty_document",
			objects: []*corev1.ConfigMap{configMap("default", cfg.ConfigMapName, map[string]string{cfg.ConfigMapKey: "[]"}, nil)},
			wantErr: ingest.ErrEmptyUpload,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := sourceFor(t, cfg, tc.objects...).Collect(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if tc.wantMsg != "" && !strings.Contains(err.Error(), tc.wantMsg) {
				t.Fatalf("expected %q in %v", tc.wantMsg, err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestNewConfigMapSourceValidation(t *testing.T) {
	cfg := config.DefaultConfig()
	if _, err := NewConfigMapSource(nil, cfg); err == nil {
		t.Fatal("expected nil client error")
	}

	cfg.ConfigMapKey = ""
	if _, err := NewConfigMapSource(NewClientFromInterface(fake.NewSimpleClientset()), cfg); err == nil {
		t.Fatal("expected missing key error")
	}
}

func TestRateLimiter(t *testing.T) {
	unlimited := NewRateLimiter(0)
	for i := 0; i < 100; i++ {
		if !unlimited.Allow() {
			t.Fatal("unlimited limiter should always allow")
		}
	}

	limited := NewRateLimiter(1)
	allowed := 0
	for i := 0; i < 10; i++ {
		if limited.Allow() {
			allowed++
		}
	}
	if allowed != 2 {
		t.Fatalf("expected burst of 2, got %d", allowed)
	}
}
