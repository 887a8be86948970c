package service

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TestHealthPath проверяет выбор пути проверки зависимости.
func TestHealthPath(t *testing.T) {
	tests := []struct {
		name     string
		rawURL   string
		explicit string
		expected string
	}{
		{"явный путь", "https://cc.example.com/api", "/health", "/health"},
		{"путь из URL", "https://audit.example.com/api/activity", "", "/api/activity"},
		{"URL без пути", "https://cc.example.com", "", "/"},
		{"невалидный URL", "://bad", "", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := healthPath(tt.rawURL, tt.explicit); got != tt.expected {
				t.Errorf("healthPath(%q, %q) = %q, ожидалось %q", tt.rawURL, tt.explicit, got, tt.expected)
			}
		})
	}
}

// TestNewDephealthService проверяет создание сервиса с изолированным registry.
func TestNewDephealthService(t *testing.T) {
	tests := []struct {
		name        string
		activityURL string
	}{
		{"только Control Center", ""},
		{"Control Center и журнал", "http://audit.example.com:8081/api/activity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := NewDephealthServiceWithRegisterer(DephealthConfig{
				ServiceID:        "cc-gateway",
				Group:            "cc-gateway",
				ControlCenterURL: "http://cc.example.com:8080",
				ActivityLogURL:   tt.activityURL,
				CheckInterval:    15 * time.Second,
			}, testLogger(), prometheus.NewRegistry())
			if err != nil {
				t.Fatalf("NewDephealthServiceWithRegisterer() ошибка: %v", err)
			}
			if ds == nil {
				t.Fatal("сервис не создан")
			}
		})
	}
}
