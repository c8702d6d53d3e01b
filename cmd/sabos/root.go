/*
 * Copyright 2025 SABOS Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/tokuhirom/sabos-sub001/kernel"
	"github.com/tokuhirom/sabos-sub001/qemu"
)

var (
	flagVerbose bool
	flagMemMiB  uint64
	flagHz      int
)

func newLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "sabos"})
	if flagVerbose {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.WarnLevel)
	}
	return logger
}

func buildKernel(exit qemu.PortWriter) (*kernel.Kernel, error) {
	cfg := kernel.DefaultConfig()
	if flagMemMiB > 0 {
		cfg.MemSize = flagMemMiB << 20
		cfg.KernelBase = cfg.MemSize / 2
		cfg.HeapSize = cfg.KernelBase * 3 / 4
	}
	if flagHz > 0 {
		cfg.TimerHz = flagHz
	}
	cfg.ConsoleOut = os.Stdout
	cfg.Logger = newLogger()
	cfg.ExitPort = exit
	return kernel.New(cfg)
}

// startTimer feeds timer interrupts at the configured rate until the
// returned func is called.
func startTimer(k *kernel.Kernel) func() {
	ticker := time.NewTicker(time.Second / time.Duration(k.Sched.Hz()))
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				k.Sched.Tick()
			case <-done:
				return
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(done)
	}
}

func run() int {
	root := &cobra.Command{
		Use:           "sabos",
		Short:         "SABOS kernel core reference model",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "kernel debug logging")
	root.PersistentFlags().Uint64Var(&flagMemMiB, "mem", 0, "machine memory in MiB (default 16)")
	root.PersistentFlags().IntVar(&flagHz, "hz", 0, "timer interrupt rate (default 100)")

	root.AddCommand(newRunCmd(), newSelftestCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "sabos:", err)
		return 2
	}
	return 0
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Boot the machine and run the demo user programs",
		RunE: func(cmd *cobra.Command, args []string) error {
			// a guest HALT really terminates the host, QEMU style
			k, err := buildKernel(qemu.PortFunc(func(_ uint16, v uint32) {
				os.Exit(qemu.HostExitCode(v))
			}))
			if err != nil {
				return err
			}
			k.Boot()
			stop := startTimer(k)
			defer stop()
			return runDemos(k)
		},
	}
}

func newSelftestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "selftest",
		Short: "Run the kernel selftest; fails with the debug-exit convention",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := buildKernel(nil)
			if err != nil {
				return err
			}
			k.Boot()
			stop := startTimer(k)
			defer stop()
			if err := k.Selftest(); err != nil {
				fmt.Fprintln(os.Stderr, "selftest failed:", err)
				os.Exit(qemu.HostExitCode(qemu.ExitFailure))
			}
			fmt.Println("selftest passed")
			return nil
		},
	}
}
