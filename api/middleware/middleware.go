package middleware

import (
	"github.com/rs/cors"
	"gopkg.in/macaron.v1"
)

// Context is what api handlers get to work with.
type Context struct {
	*macaron.Context
}

func GetContext() macaron.Handler {
	return func(c *macaron.Context) {
		c.Map(&Context{Context: c})
	}
}

func CorsHandler() macaron.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
	})
	return c.HandlerFunc
}
