// Package util provides small generic helpers shared across atelier
package util
