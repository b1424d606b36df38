// Package models provides functionality for listing available OpenAI
// chat models so users can discover which ones their API key can use
// for lyric annotation.
package models
