// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-textsign.
//
// go-textsign is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package rest exposes text signing over HTTP.
//
// Keys are generated server side and kept in a storage.Backend under
// keys/<key-id>/. Clients refer to them by id and never see secret
// material; only Ed25519 verifying keys are returned.
//
// # Server Setup
//
//	svc := textsign.New(textsign.WithLogger(log))
//	server, _ := rest.NewServer(&rest.Config{
//	    Address:       "127.0.0.1:8443",
//	    DefaultScheme: scheme.Blake3,
//	}, svc, memory.New(), log)
//
//	go server.Start()
//
//	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
//	defer cancel()
//	server.Stop(ctx)
//
// # API Endpoints
//
// Health:
//   - GET /health - Returns {"status":"ok"}
//   - GET /health/live, /health/ready, /health/startup - Kubernetes probes
//
// Metrics:
//   - GET /metrics - Prometheus exposition, when enabled
//
// Schemes and keys:
//   - GET /api/v1/schemes - Supported schemes with key and signature sizes
//   - GET /api/v1/keys - Stored key ids
//   - POST /api/v1/keys - Generate and store a key
//
// Operations:
//   - POST /api/v1/sign - Sign a base64 message with a stored key
//   - POST /api/v1/verify - Verify a signature with a stored key
//
// # Request Format
//
// Messages travel as standard base64 so arbitrary bytes survive JSON.
// Signatures are URL-safe base64 without padding, exactly as the CLI
// prints them.
//
//	POST /api/v1/sign
//	{"key_id": "release", "scheme": "ed25519", "message": "aGVsbG8gd29ybGQ="}
//
// # Error Responses
//
// Errors return a JSON body with the HTTP status code:
//
//	{"error": "verification: malformed signature", "kind": "malformed_signature", "code": 400}
package rest
