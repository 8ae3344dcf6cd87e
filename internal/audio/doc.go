// Package audio implements the standalone audio transforms: format conversion, random window trimming,
// spectrogram extraction and reconstruction.
//
// Decoding reads PCM WAV files directly with go-audio and hands every other format to the ffmpeg executable,
// which converts it to a temporary 16-bit WAV first. Samples are held in a [Buffer] as interleaved float64 in
// [-1, 1].
//
// Spectrograms use a centered short-time Fourier transform with a periodic Hann window and zero padding of
// half a frame on each side. Matrices are frequency by time, (nfft/2 + 1) rows and 1 + len/hop columns.
// Bundles are stored as npz archives with the arrays "magnitude", "phase", "S_db" and "sr".
package audio
