package config

import (
	"CrackDetection/pkg/handlerUtil"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

func NewFiber(logger *logrus.Logger, env *Env) *fiber.App {
	app := fiber.New(
		fiber.Config{
			AppName:                 env.AppName,
			BodyLimit:               env.BodyLimitBytes(),
			DisableKeepalive:        false,
			StrictRouting:           true,
			CaseSensitive:           true,
			EnablePrintRoutes:       logger.IsLevelEnabled(logrus.DebugLevel),
			DisableStartupMessage:   !logger.IsLevelEnabled(logrus.DebugLevel),
			JSONEncoder:             jsoniter.Marshal,
			JSONDecoder:             jsoniter.Unmarshal,
			ErrorHandler:            handlerUtil.New(logger).HandleFiberError,
			ProxyHeader:             env.ProxyHeader,
			EnableTrustedProxyCheck: len(env.TrustedProxies) > 0,
			TrustedProxies:          env.TrustedProxies,
		})

	return app
}
