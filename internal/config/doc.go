// Package config loads and watches the rangeshift service configuration
// (config.yaml).
//
// Top-level types:
//   - Config{Log, Server, Engine, Storage, Alerts, Jobs}: the whole file
//   - LogConfig: level (debug|info|warn|error), format (json|text)
//   - ServerConfig: http_port, result_ttl, broadcast_interval, auth
//   - AuthConfig: mode (apikey|none), key_env, header
//   - EngineConfig: rescan_interval, strict (validate rule overlap)
//   - StorageConfig: backend ("" | sqlite), path, retention
//   - AlertsConfig: rules (name, condition, severity, jobs, cooldown) and
//     webhooks (slack|teams|http, url_env)
//   - Job: id, path, mode (ranges|values)
//
// Load(path) reads the YAML file, applies defaults (port 8080, 1h result
// TTL, 5s broadcast, 1m rescan, 720h retention), then validates required
// fields and enums.
//
// Watch(ctx, path, onChange) uses fsnotify to detect changes to the config
// file and calls onChange with the newly parsed Config. WatchFiles does the
// same for a set of input files and reports which path changed. Both watch
// the parent directories, so editors that save by renaming a new file over
// the old one (vim, VS Code) keep being tracked.
package config
