// Command gen_audio writes raw PCM test audio for feeding the CLI:
//
//	go run scripts/gen_audio.go -seconds 2 -format int16 > tone.raw
//	go run cmd/voiceflow/main.go -input tone.raw -format int16
package main

import (
	"bufio"
	"encoding/binary"
	"flag"
	"fmt"
	"math"
	"os"
)

func main() {
	seconds := flag.Float64("seconds", 2, "duration of audio to generate")
	rate := flag.Int("rate", 16000, "sample rate in Hz")
	freq := flag.Float64("freq", 440, "tone frequency in Hz")
	amp := flag.Float64("amp", 0.4, "amplitude, 0..1")
	format := flag.String("format", "int16", "sample format: float32 or int16")
	out := flag.String("out", "-", "output path, - for stdout")
	flag.Parse()

	w := os.Stdout
	if *out != "-" {
		f, err := os.Create(*out)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}
	bw := bufio.NewWriter(w)
	defer bw.Flush()

	n := int(*seconds * float64(*rate))
	for i := 0; i < n; i++ {
		s := *amp * math.Sin(2*math.Pi**freq*float64(i)/float64(*rate))
		switch *format {
		case "float32":
			binary.Write(bw, binary.LittleEndian, float32(s))
		case "int16":
			binary.Write(bw, binary.LittleEndian, int16(s*math.MaxInt16))
		default:
			fmt.Fprintf(os.Stderr, "unknown format %q\n", *format)
			os.Exit(1)
		}
	}
}
