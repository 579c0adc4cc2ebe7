// Package action provides the catalog of executors that declarative
// workflow documents can name: scripts, HTTP calls, JSON extraction, blob
// load and save, Redis commands, notifications, shell commands and LLM
// completions. Each executor is built from an api.Config and reads its
// primary input from the context key named by its `input` option
package action
