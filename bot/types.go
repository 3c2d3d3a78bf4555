package bot

type Command string

const (
	// CommandNone marks a free-form message, treated as a question or as
	// the continuation of a multi-step flow.
	CommandNone          Command = ""
	CommandStart         Command = "start"
	CommandFolder        Command = "folder"
	CommandProjects      Command = "projects"
	CommandKnowledgeBase Command = "knowledge_base"
	CommandStatus        Command = "status"
	CommandAsk           Command = "ask"
)

// Event is one user action delivered by a transport.
type Event struct {
	UserID   int64
	UserName string
	Locale   string
	Command  Command
	Text     string
}

// Reply carries the answer back to the transport. The transport owns all
// platform-specific rendering; Citations and Options are plain data.
type Reply struct {
	Text      string
	Citations []string

	// Options lists choices the transport may render as buttons or a
	// numbered list (e.g. project names).
	Options []string
}

// Fixed user-facing messages. Provider errors never leak into these; the
// detail goes to the exception log only.
const (
	msgAccessDenied    = "Access is not granted for your account. Please contact the administrator."
	msgNotIndexed      = "Documents are not indexed yet. Use /folder or /knowledge_base first."
	msgNoValidFiles    = "No valid files found in the folder. Please provide PDF, Word, or Excel files."
	msgInvalidFolder   = "Invalid folder path. Please provide a valid path."
	msgIndexingError   = "An error occurred while loading and indexing your documents. Please try again later."
	msgGenerationError = "An error occurred while processing your question. Please try again later."
	msgFolderPrompt    = "Please provide the folder path for your documents:"
	msgAskPrompt       = "Please provide the question you want to ask about the documents:"
	msgInvalidProject  = "Invalid selection or project is not available. Please select a valid project."
	msgNoProjects      = "No projects are configured."
)

const msgIntro = "Welcome to the AI document assistant! I generate responses using documents " +
	"in a specified folder. Available commands:\n\n" +
	"/start - Display this introduction message.\n" +
	"/folder - Set the folder path where your documents are located.\n" +
	"/projects - Select a project folder from predefined options.\n" +
	"/ask - Ask a question about the documents.\n" +
	"/status - Display your current settings.\n" +
	"/knowledge_base - Set the context to the knowledge base.\n" +
	"Send any message without a command to ask a question."
