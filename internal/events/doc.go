// Package events distributes flow execution events to interested consumers
package events
