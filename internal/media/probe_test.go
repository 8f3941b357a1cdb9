package media

import (
	"testing"
)

const sampleProbeJSON = `{
  "streams": [
    {
      "codec_type": "video",
      "codec_name": "h264",
      "width": 1920,
      "height": 1080
    },
    {
      "codec_type": "audio",
      "codec_name": "aac",
      "sample_rate": "44100",
      "channels": 2
    }
  ],
  "format": {
    "duration": "12.480000",
    "size": "3145728"
  }
}`

func TestParseProbeOutput(t *testing.T) {
	result, err := parseProbeOutput([]byte(sampleProbeJSON))
	if err != nil {
		t.Fatalf("parseProbeOutput() error = %v", err)
	}

	if result.DurationS != 12.48 {
		t.Errorf("DurationS = %v, want 12.48", result.DurationS)
	}
	if result.Width != 1920 || result.Height != 1080 {
		t.Errorf("dimensions = %dx%d, want 1920x1080", result.Width, result.Height)
	}
	if result.VideoCodec != "h264" {
		t.Errorf("VideoCodec = %q, want h264", result.VideoCodec)
	}
	if !result.HasAudio {
		t.Error("HasAudio = false, want true")
	}
	if result.SampleRate != 44100 || result.Channels != 2 {
		t.Errorf("audio = %dHz/%dch, want 44100Hz/2ch", result.SampleRate, result.Channels)
	}
	if result.SizeBytes != 3145728 {
		t.Errorf("SizeBytes = %d, want 3145728", result.SizeBytes)
	}
}

func TestParseProbeOutput_VideoOnly(t *testing.T) {
	input := `{
	  "streams": [
	    {"codec_type": "video", "codec_name": "hevc", "width": 640, "height": 480}
	  ],
	  "format": {"duration": "3.0", "size": "1000"}
	}`

	result, err := parseProbeOutput([]byte(input))
	if err != nil {
		t.Fatalf("parseProbeOutput() error = %v", err)
	}
	if result.HasAudio {
		t.Error("HasAudio = true, want false for video-only file")
	}
}

func TestParseProbeOutput_FirstStreamWins(t *testing.T) {
	input := `{
	  "streams": [
	    {"codec_type": "video", "codec_name": "h264", "width": 100, "height": 100},
	    {"codec_type": "video", "codec_name": "mjpeg", "width": 50, "height": 50},
	    {"codec_type": "audio", "codec_name": "aac", "sample_rate": "48000", "channels": 2},
	    {"codec_type": "audio", "codec_name": "mp3", "sample_rate": "22050", "channels": 1}
	  ],
	  "format": {"duration": "1.0", "size": "1"}
	}`

	result, err := parseProbeOutput([]byte(input))
	if err != nil {
		t.Fatalf("parseProbeOutput() error = %v", err)
	}
	if result.Width != 100 || result.VideoCodec != "h264" {
		t.Errorf("video stream = %q %dpx, want first stream h264 100px", result.VideoCodec, result.Width)
	}
	if result.SampleRate != 48000 {
		t.Errorf("SampleRate = %d, want first audio stream 48000", result.SampleRate)
	}
}

func TestParseProbeOutput_Malformed(t *testing.T) {
	if _, err := parseProbeOutput([]byte("not json")); err == nil {
		t.Fatal("expected error for malformed output")
	}
}
