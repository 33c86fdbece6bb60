// Package secret resolves credentials referenced from configuration.
//
// Configuration values such as request headers, API keys and OAuth client
// secrets go through a Resolver before they reach the rpc client. A value
// is first expanded against the environment (see ExpandEnvStrict), then any
// secret reference in it is replaced by the value a Provider returns.
//
// References use the prefix "secretref:":
//   - Full value:  secretref:file:api/token
//   - Inline use:  Bearer secretref:env:API_TOKEN
//
// Two providers are built in: "env" reads an environment variable and
// "file" reads a file below a base directory, such as a mounted secrets
// volume.
package secret
