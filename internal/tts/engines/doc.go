// Package engines contains the speech engines narrations can be produced
// with: gTTS and Edge TTS (online, driven through their command line tools),
// Piper (offline) and Google Cloud Text-to-Speech (REST).
// Each engine implements the Engine interface from the parent package.
package engines
