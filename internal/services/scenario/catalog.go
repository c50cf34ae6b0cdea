package scenario

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/unifiedui/chat-bridge/internal/domain/models"
)

// DefaultCatalog is the built-in set of explanation cards.
func DefaultCatalog() []models.Scenario {
	return []models.Scenario{
		{
			Key:   "CALENDAR_STATE",
			Title: "Adding Booking to Calendar",
			Description: "Upon completing a booking, the agent offers to add the reservation details directly to the user's Google Calendar for their convenience. " +
				"Following the user's confirmation and authorization, the agent automatically creates a calendar event with the booking information on the user's behalf.",
			Details: "• **Google Calendar Integration**\n  Once the booking is finalized, the agent offers the user the option to automatically add the booking details to their Google Calendar.\n\n" +
				"• **User Confirmation for Calendar Integration**\n  The user confirms their desire to have the booking added to their Google Calendar.\n\n" +
				"• **Authorization Request for Calendar Access**\n  The user is prompted to grant the necessary permissions for the agent to access their Google Calendar. This is typically done through a secure OAuth flow through the Identity Server.\n\n" +
				"• **Secure Access Token Retrieval**\n  Upon the user granting permission, the agent securely receives an access token from Google's authentication service through the Identity Server. This token allows the agent to interact with the Google Calendar API on the user's behalf.\n\n" +
				"• **Calendar Event Creation**\n  Leveraging the OAuth access token and the Google Calendar API, the agent automatically creates a new calendar event containing all relevant booking details in the user's Google Calendar.",
			MatchTags: []string{"ADDED_TO_CALENDAR"},
			Priority:  2,
		},
		{
			Key:   "BOOKING_STATE",
			Title: "User Authorization for Booking",
			Description: "Prior to finalizing a hotel booking, the agent ensures explicit consent is obtained from the user. " +
				"This step is crucial to confirm the user's agreement to the booking details and to authorize the agent to proceed with the booking on their behalf.",
			Details: "• **Booking Details Submission**\n  The user selects their desired room and submits their booking details to the agent for review and confirmation.\n\n" +
				"• **Consent Request and Token Acquisition**\n  Upon the user confirming the booking details, the agent securely receives an access token from the identity server. This token signifies the user's authenticated consent and authorizes the agent to proceed with the booking process.\n\n" +
				"• **Booking Finalization**\n  Utilizing the access token, the agent securely finalizes the booking with the hotel system on behalf of the user.",
			MatchTags: []string{"BOOKING_COMPLETED"},
			Priority:  3,
		},
		{
			Key:         "FETCH_HOTELS_STATE",
			Title:       "Hotel Suggestions",
			Description: "When a user initiates a search for hotel accommodations, the agent retrieves up-to-date data to present a relevant selection of options.",
			Details: "• **User Requests Suggestions**\n  The user specifies their desired travel dates and location to initiate a search for available hotel rooms.\n\n" +
				"• **Agent Authentication and Token Acquisition**\n  The agent utilizes its own secure credentials to authenticate with the Identity Server. Upon successful authentication, the WSO2 Identity Server issues an access token to the agent.\n\n" +
				"• **Hotel Data Retrieval**\n  The agent leverages the access token to make a secure request to the Hotel API.",
			MatchTags: []string{"FETCHED_HOTELS", "FETCHED_HOTEL", "FETCHED_ROOM"},
			Priority:  4,
		},
		{
			Key:   "UPGRADE_STATE",
			Title: "Booking Upgrade",
			Description: "When a user wishes to upgrade their existing hotel booking to a superior room category, " +
				"the agent initiates a process involving scheduled monitoring of availability and managed execution of the upgrade.",
			Details: "• **User Upgrade Request**\n  The user informs the agent of their desire to upgrade their current hotel booking to a different, typically higher-tier, room type.\n\n" +
				"• **Availability Monitoring**\n  The agent schedules a recurring background task to query the Hotel API at regular intervals. This task specifically monitors the availability of the requested superior room type for the user's existing booking dates.\n\n" +
				"• **User Notification and Consent via Client-Initiated Backchannel**\n  When a suitable room becomes available, the agent promptly notifies the user of this availability. Leveraging a Client-Initiated Backchannel communication within the Identity Server, the agent securely requests and obtains the user's explicit consent to proceed with the upgrade.\n\n" +
				"• **Booking Upgrade and Confirmation**\n  Upon receiving the user's approval, the agent interacts with the Hotel API to modify the existing booking, updating it with the details of the newly selected superior room. Following a successful upgrade, the agent sends a detailed confirmation email to the user, outlining the updated booking information.",
			MatchTags: []string{"PROCCESING_UPGRADE"},
			Priority:  1,
		},
	}
}

// catalogFile is the on-disk catalog format.
type catalogFile struct {
	Scenarios []models.Scenario `json:"scenarios"`
}

// LoadCatalog reads a JSON catalog of the form {"scenarios": [...]}.
func LoadCatalog(path string) ([]models.Scenario, error) {
	if path == "" {
		return nil, fmt.Errorf("catalog path not configured")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve catalog path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}

	for i, s := range file.Scenarios {
		if s.Title == "" {
			return nil, fmt.Errorf("scenario %d: title is required", i)
		}
	}

	return file.Scenarios, nil
}
