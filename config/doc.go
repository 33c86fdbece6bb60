// Package config loads the YAML configuration of an rpcquery client.
//
// A file describes the upstream API, query cache defaults, persistence,
// telemetry and health probing:
//
//	client:
//	  baseUrl: ${API_URL}
//	  headers: { X-Client: web }
//	  timeout: 10s
//	  auth:
//	    type: apikey
//	    apiKey: secretref:file:api/key
//	query:
//	  staleTime: 30s
//	  retry: 3
//	persist:
//	  backend: leveldb
//	  path: ./data/rpcquery
//	  ttl: 1h
//	secrets:
//	  file: { dir: /run/secrets }
//
// Every string value is resolved while loading: ${VAR} references are
// expanded strictly, so an unset variable is an error, and $$ is a literal
// dollar sign. Secret references (secretref:<provider>:<ref>) are then
// resolved through the providers named in the secrets section; "env" is
// always available.
//
// A loaded Config builds the runtime pieces: NewRPCClient, NewQueryClient,
// OpenStore, NewPersister, ObserveConfig and HealthAggregator.
package config
