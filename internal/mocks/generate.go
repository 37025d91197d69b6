// Package mocks provides mock implementations for testing the proxy's job lifecycle.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the core ports.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockStore := mocks.NewMockJobStore(ctrl)
//	mockStore.EXPECT().Get(gomock.Any(), "job-1").Return(job, nil)
package mocks

// Generate mock for JobStore interface from internal/core package.
// This creates MockJobStore with methods for all JobStore interface methods:
// Insert, Get, Mutate, DeleteTerminalBefore, Health
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_store_mock.go github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/core JobStore

// Generate mock for PaymentGateway interface from internal/core package.
// This creates MockPaymentGateway with methods for all PaymentGateway interface methods:
// Create, ResolveStatus
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=payment_gateway_mock.go github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/core PaymentGateway

// Generate mock for WebhookInvoker interface from internal/core package.
// This creates MockWebhookInvoker with methods for all WebhookInvoker interface methods:
// Invoke
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=webhook_invoker_mock.go github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/core WebhookInvoker
