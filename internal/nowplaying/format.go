package nowplaying

import "fmt"

// SampleRateDisplay renders a rate in Hz as the "44.1 kHz" form clients show.
func SampleRateDisplay(rateHz float64) string {
	return fmt.Sprintf("%.1f kHz", rateHz/1000)
}

// BitDepthDisplay renders a bit depth as "16-bit".
func BitDepthDisplay(bits int) string {
	return fmt.Sprintf("%d-bit", bits)
}
