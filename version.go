package trivium

// Version is the release version of the library and the trivium binary.
const Version = "0.1.0"
