package internal

// Version is the lyricsd release version
const Version = "0.3.1"
