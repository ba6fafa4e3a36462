// Command xt86 is a minimal smoke-test driver for the machine package:
// it loads a flat binary image into RAM or ROM, steps the CPU for a
// bounded number of instructions, and prints final register state. It
// is not a host shell (no renderer, no real-time loop, no audio), just
// enough to exercise the library from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"xt86/cpu"
	"xt86/machine"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "xt86",
		Short: "IBM PC/XT-class 8086 machine emulator smoke-test driver",
	}

	var (
		memoryKiB  int
		loadAddr   uint32
		romPath    string
		maxSteps   int
		verbose    bool
		numFloppy  int
		fpuPresent bool
	)

	runCmd := &cobra.Command{
		Use:   "run [image]",
		Short: "Load a flat binary image and step the machine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			image, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading image: %w", err)
			}

			var rom []byte
			if romPath != "" {
				rom, err = os.ReadFile(romPath)
				if err != nil {
					return fmt.Errorf("reading ROM: %w", err)
				}
			}

			m := machine.New(&machine.Config{
				MemoryKiB:       memoryKiB,
				NumFloppyDrives: numFloppy,
				FPUInstalled:    fpuPresent,
				ROM:             rom,
				Debug:           verbose,
			})

			if err := m.LoadImage(image, loadAddr); err != nil {
				return err
			}
			if rom == nil {
				// No ROM image: start execution at the load address
				// instead of the reset vector, which would run into
				// unpopulated ROM.
				m.CPU().SetCS(uint16(loadAddr >> 4))
				m.CPU().SetIP(uint16(loadAddr & 0xF))
			}

			steps := 0
			for steps < maxSteps {
				status := m.Step()
				steps++
				if status == cpu.StatusHalt {
					fmt.Printf("halted after %d steps\n", steps)
					break
				}
				if status == cpu.StatusDecodeFail {
					fmt.Printf("decode failure after %d steps at CS:IP=%04X:%04X\n", steps, m.CPU().CS(), m.CPU().IP())
					break
				}
			}

			fmt.Printf("steps executed: %d\n", steps)
			fmt.Printf("AX=%04X BX=%04X CX=%04X DX=%04X\n", m.CPU().AX(), m.CPU().BX(), m.CPU().CX(), m.CPU().DX())
			fmt.Printf("CS:IP=%04X:%04X SS:SP=%04X:%04X\n", m.CPU().CS(), m.CPU().IP(), m.CPU().SS(), m.CPU().SP())
			return nil
		},
	}
	runCmd.Flags().IntVar(&memoryKiB, "memory-kib", 640, "Conventional RAM size in KiB (1-640)")
	runCmd.Flags().Uint32Var(&loadAddr, "load-addr", 0x7C00, "Physical address to load the image at")
	runCmd.Flags().StringVar(&romPath, "rom", "", "Optional BIOS ROM image, loaded at the top of the ROM window")
	runCmd.Flags().IntVar(&maxSteps, "max-steps", 1_000_000, "Maximum instruction cycles to execute")
	runCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log device and memory activity")
	runCmd.Flags().IntVar(&numFloppy, "floppy-drives", 1, "Number of floppy drives reported to the guest (0-4)")
	runCmd.Flags().BoolVar(&fpuPresent, "fpu", false, "Report an FPU present in the equipment word")

	rootCmd.AddCommand(runCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
