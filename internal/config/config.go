package config

import (
	"log"

	"lym-insights/pkg/config"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   config.ServerConfig   `yaml:"server"`
	DB       config.DBConfig       `yaml:"db"`
	Redis    config.RedisConfig    `yaml:"redis"`
	MQ       config.MQConfig       `yaml:"mq"`
	JWT      config.JWTConfig      `yaml:"jwt"`
	LLM      config.LLMConfig      `yaml:"llm"`
	Pipeline config.PipelineConfig `yaml:"pipeline"`
}

func Load() *Config {
	env := config.GetConfigEnv()
	configDir := config.GetEnv("CONFIG_DIR", "config")

	cfgMap, err := config.LoadConfig(env, configDir)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var cfg Config
	cfgData, err := yaml.Marshal(cfgMap)
	if err != nil {
		log.Fatalf("failed to marshal config: %v", err)
	}
	if err := yaml.Unmarshal(cfgData, &cfg); err != nil {
		log.Fatalf("failed to unmarshal config: %v", err)
	}

	// Environment variables have the highest priority.
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideLLMFromEnv(&cfg.LLM)

	return &cfg
}
