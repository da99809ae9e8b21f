// Package zaplog adapts go.uber.org/zap to the tether Logger interface.
package zaplog
