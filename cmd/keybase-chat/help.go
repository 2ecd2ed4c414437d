package main

func helpLines() []string {
	return []string{
		"Commands:",
		"  /help                  - Show this help message.",
		"  /cc [conversation]     - Change channel: go back to the conversation list.",
		"  /af <file_path>        - Attach a file to the conversation.",
		"  /df <file_identifier>  - Download a file (provide file/message ID).",
		"  /quit                  - Quit the application.",
	}
}
