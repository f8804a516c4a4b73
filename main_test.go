package main

import (
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureLogLevelFromEnv(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	cases := map[string]zerolog.Level{
		"":      zerolog.Disabled,
		"0":     zerolog.Disabled,
		"false": zerolog.Disabled,
		"1":     zerolog.DebugLevel,
		"true":  zerolog.DebugLevel,
		"trace": zerolog.DebugLevel,
	}
	for val, want := range cases {
		t.Setenv("DEBUG_ESIGN", val)
		configureLogLevelFromEnv()
		assert.Equal(t, want, zerolog.GlobalLevel(), "DEBUG_ESIGN=%q", val)
	}
}

func TestSetupInterruptListener(t *testing.T) {
	stopChan := setupInterruptListener()
	require.NotNil(t, stopChan)
	assert.Equal(t, 1, cap(stopChan))
}

func TestHandleInterrupt(t *testing.T) {
	stopChan := make(chan os.Signal, 1)
	exitCode := make(chan int, 1)
	logged := make(chan string, 1)

	go handleInterrupt(stopChan, func(msg string) { logged <- msg }, func(code int) { exitCode <- code })
	stopChan <- os.Interrupt

	select {
	case code := <-exitCode:
		assert.Equal(t, 1, code)
		assert.Equal(t, "Interrupt signal received. Exiting...", <-logged)
	case <-time.After(time.Second):
		t.Fatal("exit function was not called on interrupt")
	}
}
