package config

import "strconv"

// Dragonfly is the redis-protocol store backing the result cache. An empty
// host disables caching.
type Dragonfly struct {
	Host     string `env:"DRAGONFLY_HOST"`
	Port     int    `env:"DRAGONFLY_PORT" envDefault:"6379"`
	DB       int    `env:"DRAGONFLY_DB" envDefault:"0"`
	Password string `env:"DRAGONFLY_PASSWORD"`
}

func (d Dragonfly) Enabled() bool {
	return d.Host != ""
}

func (d Dragonfly) Addr() string {
	return d.Host + ":" + strconv.Itoa(d.Port)
}
