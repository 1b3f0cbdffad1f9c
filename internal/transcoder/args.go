package transcoder

import "github.com/iconidentify/tubegrab/internal/domain"

// audioBitrates maps requested audio quality to an encoder bitrate.
// Unrecognized keys fall back to the mid tier.
var audioBitrates = map[string]string{
	"128":  "128k",
	"192":  "192k",
	"256":  "256k",
	"320":  "320k",
	"best": "256k",
}

const defaultAudioBitrate = "256k"

// videoResolutions maps requested video quality to a scaling target.
// Unknown qualities keep the source resolution.
var videoResolutions = map[string]string{
	"360":  "640x360",
	"480":  "854x480",
	"720":  "1280x720",
	"1080": "1920x1080",
}

// Args builds the transcoder invocation for a media kind. Output always
// goes to the primary output channel (stdout) so it can be bridged
// straight onto the response body.
func Args(kind domain.MediaKind, mediaURL, quality string) []string {
	if kind == domain.KindAudio {
		return audioArgs(mediaURL, quality)
	}
	return videoArgs(mediaURL, quality)
}

// audioArgs discards video and encodes 44.1 kHz stereo MP3.
func audioArgs(mediaURL, quality string) []string {
	bitrate, ok := audioBitrates[quality]
	if !ok {
		bitrate = defaultAudioBitrate
	}

	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-nostdin",
		"-i", mediaURL,
		"-vn",
		"-ar", "44100",
		"-ac", "2",
		"-b:a", bitrate,
		"-f", "mp3",
		"pipe:1",
	}
}

// videoArgs encodes H.264/AAC MP4 with fragmented output so the
// container is valid before the full stream is written.
func videoArgs(mediaURL, quality string) []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-nostdin",
		"-i", mediaURL,
	}

	if res, ok := videoResolutions[quality]; ok {
		args = append(args, "-vf", "scale="+res)
	}

	return append(args,
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "192k",
		"-movflags", "frag_keyframe+empty_moov",
		"-f", "mp4",
		"pipe:1",
	)
}
