// Package alerts evaluates alert rules against job results and delivers
// firing and resolved notifications to Slack, Teams or plain HTTP webhooks.
package alerts
