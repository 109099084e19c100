package infra

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/updateme/updateme/domain/model"
)

// DynamoPreferences is a DynamoDB-backed PreferenceStore. Per-user UI state
// is a flat single-key item, which fits a key-value table better than the
// relational store when the bot runs without a database volume.
type DynamoPreferences struct {
	db *dynamodb.Client
}

var preferencesTableName = "updateme_slack_user_preferences"

func NewDynamoPreferences() (*DynamoPreferences, error) {
	if os.Getenv("DYNAMO_PREFERENCES_TABLE_NAME") != "" {
		preferencesTableName = os.Getenv("DYNAMO_PREFERENCES_TABLE_NAME")
	}
	var db *dynamodb.Client
	if os.Getenv("DYNAMO_LOCAL") != "" {
		cfg, err := config.LoadDefaultConfig(context.TODO(),
			config.WithRegion("dummy"),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("dummy", "dummy", "dummy")),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %v", err)
		}

		db = dynamodb.NewFromConfig(cfg,
			func(o *dynamodb.Options) {
				o.BaseEndpoint = aws.String("http://localhost:8000")
			},
		)
	} else {
		cfg, err := config.LoadDefaultConfig(context.TODO())
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %v", err)
		}

		db = dynamodb.NewFromConfig(cfg)
	}
	d := &DynamoPreferences{
		db: db,
	}
	if os.Getenv("DYNAMO_LOCAL") != "" {
		if err := d.EnsureTable(); err != nil {
			return nil, err
		}
	}
	return d, nil
}

const (
	waitInterval = 2 * time.Second
	maxRetries   = 30
)

func (d *DynamoPreferences) EnsureTable() error {
	_, err := d.db.DescribeTable(context.TODO(), &dynamodb.DescribeTableInput{
		TableName: aws.String(preferencesTableName),
	})
	if err == nil {
		return nil
	}

	_, err = d.db.CreateTable(context.TODO(), &dynamodb.CreateTableInput{
		TableName: aws.String(preferencesTableName),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("user_id"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("user_id"), KeyType: types.KeyTypeHash},
		},
		ProvisionedThroughput: &types.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(5),
			WriteCapacityUnits: aws.Int64(5),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create table %s: %v", preferencesTableName, err)
	}

	for i := 0; i < maxRetries; i++ {
		out, err := d.db.DescribeTable(context.TODO(), &dynamodb.DescribeTableInput{
			TableName: aws.String(preferencesTableName),
		})
		if err != nil {
			return fmt.Errorf("failed to describe table %s: %v", preferencesTableName, err)
		}

		if out.Table.TableStatus == types.TableStatusActive {
			return nil
		}

		time.Sleep(waitInterval)
	}

	return fmt.Errorf("table %s creation timed out", preferencesTableName)
}

func (d *DynamoPreferences) ReadSlackUserPreferences(userID string) (*model.SlackUserPreferences, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(preferencesTableName),
		Key: map[string]types.AttributeValue{
			"user_id": &types.AttributeValueMemberS{Value: userID},
		},
	}

	result, err := d.db.GetItem(context.TODO(), input)
	if err != nil {
		return nil, err
	}

	if result.Item == nil {
		return nil, nil
	}

	return &model.SlackUserPreferences{
		UserID:                 getStringValue(result.Item, "user_id"),
		ActiveTab:              getStringValue(result.Item, "active_tab"),
		ActiveConfigurationTab: getStringValue(result.Item, "active_configuration_tab"),
		ActiveTeamUUID:         getStringValue(result.Item, "active_team_uuid"),
		ActiveDepartmentUUID:   getStringValue(result.Item, "active_department_uuid"),
		ActiveProjectUUID:      getStringValue(result.Item, "active_project_uuid"),
	}, nil
}

func (d *DynamoPreferences) InsertSlackUserPreferences(prefs *model.SlackUserPreferences) error {
	input := &dynamodb.PutItemInput{
		TableName: aws.String(preferencesTableName),
		Item: map[string]types.AttributeValue{
			"user_id":                  &types.AttributeValueMemberS{Value: prefs.UserID},
			"active_tab":               &types.AttributeValueMemberS{Value: prefs.ActiveTab},
			"active_configuration_tab": &types.AttributeValueMemberS{Value: prefs.ActiveConfigurationTab},
			"active_team_uuid":         &types.AttributeValueMemberS{Value: prefs.ActiveTeamUUID},
			"active_department_uuid":   &types.AttributeValueMemberS{Value: prefs.ActiveDepartmentUUID},
			"active_project_uuid":      &types.AttributeValueMemberS{Value: prefs.ActiveProjectUUID},
			"updated_at":               &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
	}

	_, err := d.db.PutItem(context.TODO(), input)
	return err
}

func getStringValue(item map[string]types.AttributeValue, key string) string {
	if v, ok := item[key].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}
